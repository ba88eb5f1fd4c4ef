package conversation

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition matches every StateError.
var ErrInvalidTransition = errors.New("invalid conversation transition")

// StateError reports a (state, event) pair absent from the transition table.
// It indicates a client or ordering bug and is never retryable.
type StateError struct {
	From  State
	Event Event
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("transition %s --%s--> is not allowed", e.From, e.Event)
}

// Is reports whether target is ErrInvalidTransition.
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidTransition
}
