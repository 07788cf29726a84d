package action

import (
	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/engine/history"
	"github.com/dshills/facekit/internal/event"
)

// Request describes one execution of an action.
type Request struct {
	// Action is the executing action.
	Action *Action

	// Trigger is the event group that caused the execution. It is empty when
	// the user invoked the action directly.
	Trigger event.Group

	// Document is the target, usually the selected document. May be nil.
	Document *document.Document
}

// UserInstigated reports whether the user invoked the action directly.
func (r Request) UserInstigated() bool {
	return r.Trigger.IsEmpty()
}

// Env returns the engine the action is attached to.
func (r Request) Env() Env {
	return r.Action.env
}

// StoreUndo records the undo state of the request's document.
func (r Request) StoreUndo(g event.Group, autoRestore bool) (*history.State, error) {
	if r.Document == nil {
		return nil, ErrNoDocument
	}
	return r.Action.StoreUndo(g, autoRestore, r.Document)
}

// StoreUndoLocked records the undo state of the request's document, whose
// write lock the caller holds.
func (r Request) StoreUndoLocked(g event.Group, autoRestore bool) (*history.State, error) {
	if r.Document == nil {
		return nil, ErrNoDocument
	}
	return r.Action.StoreUndoLocked(g, autoRestore, r.Document)
}

// ScrapLastUndo discards the request document's most recent undo state.
func (r Request) ScrapLastUndo() bool {
	if r.Document == nil {
		return false
	}
	return r.Action.ScrapLastUndo(r.Document)
}

// Status posts a status message.
func (r Request) Status(msg string) {
	if r.Action.env != nil {
		r.Action.env.Status(msg)
	}
}
