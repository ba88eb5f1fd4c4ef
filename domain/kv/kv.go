// Package kv provides the domain interface for key-value backends with per-key TTL.
// Sessions and quote results are both persisted through it.
package kv

import (
	"context"
	"time"
)

// Backend defines the key-value operations the core consumes.
// Implementations may be in-memory, Redis, Badger or any store with per-key TTL.
type Backend interface {
	// Get retrieves a value by key.
	// Returns the value, whether it was found, and any error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given key and options.
	Set(ctx context.Context, key string, value []byte, opts SetOptions) error

	// Delete removes an entry by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// TTL returns the remaining lifetime of a key.
	// The boolean is false when the key is absent or has no expiration.
	TTL(ctx context.Context, key string) (time.Duration, bool, error)
}

// SetOptions configures how a value is stored.
type SetOptions struct {
	// TTL is the time-to-live for the entry.
	// Zero means no expiration.
	TTL time.Duration
}

// Stats provides backend statistics.
type Stats struct {
	// Hits is the number of successful reads.
	Hits int64
	// Misses is the number of reads for absent keys.
	Misses int64
	// Size is the current number of entries (0 when not tracked).
	Size int64
}

// StatsProvider is an optional interface for backends that support statistics.
type StatsProvider interface {
	Stats() Stats
}
