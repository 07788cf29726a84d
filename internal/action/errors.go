package action

import "errors"

// Action errors.
var (
	// ErrNotAttached indicates the action was used before being registered
	// with an engine.
	ErrNotAttached = errors.New("action: not attached to an engine")

	// ErrNoDocument indicates an undo was requested with no document.
	ErrNoDocument = errors.New("action: no document")

	// ErrWorkPanic wraps a panic recovered from an inline DoWork.
	ErrWorkPanic = errors.New("action: panic in work")
)
