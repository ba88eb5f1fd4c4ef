package session

import (
	"errors"
	"fmt"
)

// Domain errors for session operations.
var (
	// ErrNotFound indicates no live session exists for the key.
	ErrNotFound = errors.New("session not found")

	// ErrInfrastructure matches every InfrastructureError.
	ErrInfrastructure = errors.New("session backend unavailable")

	// ErrInvalidUserID indicates an empty user identifier.
	ErrInvalidUserID = errors.New("user id is required")

	// ErrInvalidRecord indicates a record that violates its invariants.
	ErrInvalidRecord = errors.New("invalid session record")

	// ErrCorruptPayload indicates a stored payload that cannot be decoded.
	ErrCorruptPayload = errors.New("corrupt session payload")
)

// InfrastructureError reports a backend failure that was not degraded to the
// in-process fallback. Callers may retry at a higher level.
type InfrastructureError struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("session %s %s: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the backend error.
func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInfrastructure.
func (e *InfrastructureError) Is(target error) bool {
	return target == ErrInfrastructure
}
