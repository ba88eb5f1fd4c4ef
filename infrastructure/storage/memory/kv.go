package memory

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/freight-agent/domain/kv"
)

// kvEntry holds a stored value with expiration.
type kvEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *kvEntry) expiredAt(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// KV is an in-process implementation of kv.Backend.
// It serves as the development fallback when the durable backend is unreachable.
// Expired entries are invisible to readers and removed by Sweep.
type KV struct {
	entries map[string]*kvEntry
	mu      sync.RWMutex
	now     func() time.Time
	onSweep func(keys []string)

	hits   int64
	misses int64

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
	started  bool
	closed   bool
}

// KVOption configures the store.
type KVOption func(*KV)

// WithClock sets the time source.
func WithClock(now func() time.Time) KVOption {
	return func(s *KV) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSweepHook registers a callback invoked with the keys removed by each sweep.
func WithSweepHook(fn func(keys []string)) KVOption {
	return func(s *KV) {
		s.onSweep = fn
	}
}

// NewKV creates an empty store.
func NewKV(opts ...KVOption) *KV {
	s := &KV{
		entries: make(map[string]*kvEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves a value by key.
func (s *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, kv.ErrClosed
	}

	entry, ok := s.entries[key]
	if !ok || entry.expiredAt(s.now()) {
		s.misses++
		return nil, false, nil
	}
	s.hits++

	// Return a copy to prevent mutation
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

// Set stores a value.
func (s *KV) Set(ctx context.Context, key string, value []byte, opts kv.SetOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return kv.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kv.ErrClosed
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	entry := &kvEntry{value: valueCopy}
	if opts.TTL > 0 {
		entry.expiresAt = s.now().Add(opts.TTL)
	}
	s.entries[key] = entry
	return nil
}

// Delete removes a value.
func (s *KV) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kv.ErrClosed
	}
	delete(s.entries, key)
	return nil
}

// Exists checks if a live key exists.
func (s *KV) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, kv.ErrClosed
	}
	entry, ok := s.entries[key]
	return ok && !entry.expiredAt(s.now()), nil
}

// TTL returns the remaining lifetime of a key.
func (s *KV) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, false, kv.ErrClosed
	}
	entry, ok := s.entries[key]
	now := s.now()
	if !ok || entry.expiresAt.IsZero() || entry.expiredAt(now) {
		return 0, false, nil
	}
	return entry.expiresAt.Sub(now), true, nil
}

// Sweep removes expired entries and returns their keys.
func (s *KV) Sweep() []string {
	s.mu.Lock()
	now := s.now()
	var removed []string
	for key, entry := range s.entries {
		if entry.expiredAt(now) {
			delete(s.entries, key)
			removed = append(removed, key)
		}
	}
	hook := s.onSweep
	s.mu.Unlock()

	if hook != nil && len(removed) > 0 {
		hook(removed)
	}
	return removed
}

// StartSweeper runs Sweep every interval until Close. Calling it twice is a no-op.
func (s *KV) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

// Close stops the sweeper and rejects further operations.
func (s *KV) Close() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		started := s.started
		s.mu.Unlock()

		close(s.stop)
		if started {
			<-s.done
		}
	})
	return nil
}

// Stats returns store statistics.
func (s *KV) Stats() kv.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return kv.Stats{
		Hits:   s.hits,
		Misses: s.misses,
		Size:   int64(len(s.entries)),
	}
}

// Len returns the number of entries, including expired ones not yet swept.
func (s *KV) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure KV implements kv.Backend and kv.StatsProvider
var (
	_ kv.Backend       = (*KV)(nil)
	_ kv.StatsProvider = (*KV)(nil)
)
