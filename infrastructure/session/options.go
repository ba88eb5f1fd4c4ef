package session

import (
	"time"

	domainconfig "github.com/felixgeelhaar/freight-agent/domain/config"
	"github.com/felixgeelhaar/freight-agent/domain/kv"
	"github.com/felixgeelhaar/freight-agent/domain/session"
	"github.com/felixgeelhaar/freight-agent/infrastructure/telemetry"
)

// DefaultTTL is the session lifetime when none is configured.
const DefaultTTL = 30 * time.Minute

// Option configures a Store.
type Option func(*Store)

// WithPrimary sets the durable backend.
func WithPrimary(b kv.Backend) Option {
	return func(s *Store) {
		s.primary = b
	}
}

// WithProfile sets the deployment profile. Production disables the in-process fallback.
func WithProfile(p domainconfig.Profile) Option {
	return func(s *Store) {
		s.profile = p
	}
}

// WithTTL sets the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock sets the time source for the store and its fallback.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEventHandler receives session lifecycle events.
func WithEventHandler(fn func(session.Event)) Option {
	return func(s *Store) {
		s.onEvent = fn
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}
