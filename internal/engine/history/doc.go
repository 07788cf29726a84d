// Package history provides per-document undo/redo for actions.
//
// An action calls Store immediately before it mutates a document. With
// autoRestore the manager captures a snapshot of exactly the fields the event
// group says will change; otherwise it asks the action to fill the State's
// side table itself (SaveState) and later to apply it (RestoreState).
//
// # Stacks
//
// Each document has an undo and a redo stack, both bounded (default 10,
// oldest evicted first). Storing a new state clears that document's redo
// stack. Documents are independent: closing one clears only its own stacks.
// Actions that are not tied to a document use the NoDocument bucket.
//
//	doc.Lock()
//	st, err := mgr.StoreLocked(action, event.Of(event.AffineChange), true, doc)
//	// ... mutate doc ...
//	doc.Unlock()
//	g, err := mgr.Undo(doc.ID)   // restores and returns the group to raise
//	g, err = mgr.Redo(doc.ID)
//
// # Locking
//
// One mutex guards the stacks of every document. Store and restore also hold
// the write lock of each affected document, taken before the stack mutex, so
// a state stored under a held lock and the mutation that follows it are never
// split by an Undo or Redo.
package history
