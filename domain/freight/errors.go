package freight

import (
	"errors"
	"fmt"
)

// Domain errors for freight operations.
var (
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrNoOptions indicates that no provider returned a candidate.
	// It is a business outcome, not a fault.
	ErrNoOptions = errors.New("no freight options for destination")

	// ErrProvider matches every ProviderError.
	ErrProvider = errors.New("quote provider failed")

	// ErrProviderRejected marks upstream failures that must not be retried (4xx).
	ErrProviderRejected = errors.New("quote provider rejected request")

	// ErrProviderUnavailable marks retryable upstream failures (5xx, timeouts).
	ErrProviderUnavailable = errors.New("quote provider unavailable")
)

// ValidationError describes malformed user-supplied input.
// It is never retryable and always carries a corrective message.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ProviderError wraps an upstream failure that survived retries.
type ProviderError struct {
	Sources   []Source
	Retryable bool
	Err       error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("quote providers %v failed: %v", e.Sources, e.Err)
}

// Unwrap returns the underlying failure.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrProvider.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// IsRetryable returns true if err is a retryable provider failure.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrProviderRejected) {
		return false
	}
	return true
}
