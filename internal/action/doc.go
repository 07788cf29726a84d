// Package action implements the lifecycle of named, stateful operations.
//
// An Action wraps a Behavior (the operation's DoWork) and drives it through a
// fixed sequence:
//
//	IsAllowed -> DoBefore -> DoWork -> DoAfter -> Refresh -> Notify
//
// DoWork runs inline on the coordinating goroutine, or on a background worker
// for Async actions. Every other step runs on the coordinating goroutine. The
// working window opens before DoWork starts and closes after DoAfter returns;
// inside it IsWorking reports true and IsEnabled false.
//
// A behavior that mutates a document holds its write lock from
// StoreUndoLocked until the mutation is done, so an undo of that document
// either runs before the state is stored or after the mutation.
//
// Behaviors opt into further steps by implementing the capability interfaces
// in this package (Allower, Preparer, Finisher, Purger, Checker, Binder) and
// into custom undo by implementing history.Saver and history.Restorer.
//
// The event masks (AddPurgeEvent, AddRefreshEvent, AddTriggerEvent) are set
// up before the dispatcher is finalised and are read-only afterwards.
package action
