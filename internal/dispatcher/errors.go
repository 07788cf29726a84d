package dispatcher

import "errors"

// Dispatcher errors.
var (
	// ErrDuplicateAction indicates an action name is already registered.
	ErrDuplicateAction = errors.New("dispatcher: duplicate action name")

	// ErrFinalised indicates registration after Finalise.
	ErrFinalised = errors.New("dispatcher: already finalised")

	// ErrNoAction indicates no action is registered under a name.
	ErrNoAction = errors.New("dispatcher: no such action")

	// ErrNilAction indicates a nil action was registered.
	ErrNilAction = errors.New("dispatcher: nil action")
)
