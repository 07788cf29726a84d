package lua

import (
	"errors"
	"fmt"
)

// Errors for Lua script operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrNoActions is returned when a script registers no action.
	ErrNoActions = errors.New("lua script defines no actions")

	// ErrInvalidAction is returned for a malformed action table.
	ErrInvalidAction = errors.New("invalid action definition")
)

// ScriptError reports a failure in a named script.
type ScriptError struct {
	Script string
	Err    error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("lua script %s: %v", e.Script, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}
