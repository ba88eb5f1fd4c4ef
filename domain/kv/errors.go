package kv

import "errors"

// Domain errors for key-value operations.
var (
	// ErrInvalidKey is returned when a key is invalid (e.g., empty).
	ErrInvalidKey = errors.New("invalid key")

	// ErrConnectionFailed is returned when connection to the backend fails.
	ErrConnectionFailed = errors.New("kv connection failed")

	// ErrOperationTimeout is returned when a backend operation times out.
	ErrOperationTimeout = errors.New("kv operation timeout")

	// ErrClosed is returned when the backend has been closed.
	ErrClosed = errors.New("kv backend closed")
)
