// Package session provides the tenant-scoped session store.
//
// Records live in a durable kv.Backend. Outside production an in-process
// fallback absorbs backend failures so that a conversation can continue;
// in production those failures surface as session.InfrastructureError.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domainconfig "github.com/felixgeelhaar/freight-agent/domain/config"
	"github.com/felixgeelhaar/freight-agent/domain/kv"
	"github.com/felixgeelhaar/freight-agent/domain/session"
	"github.com/felixgeelhaar/freight-agent/domain/tenant"
	"github.com/felixgeelhaar/freight-agent/infrastructure/logging"
	"github.com/felixgeelhaar/freight-agent/infrastructure/storage/memory"
	"github.com/felixgeelhaar/freight-agent/infrastructure/telemetry"
)

// ErrPrimaryRequired is returned when a production store has no durable backend.
var ErrPrimaryRequired = errors.New("session: production profile requires a durable backend")

// Store persists conversation records. Writes are last-writer-wins.
type Store struct {
	primary  kv.Backend
	fallback *memory.KV
	profile  domainconfig.Profile
	ttl      time.Duration
	now      func() time.Time
	onEvent  func(session.Event)
	metrics  telemetry.Metrics
}

// New creates a store. Outside production a nil primary means memory-only operation.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		profile: domainconfig.ProfileDevelopment,
		ttl:     DefaultTTL,
		now:     time.Now,
		metrics: telemetry.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.profile.IsProduction() {
		if s.primary == nil {
			return nil, ErrPrimaryRequired
		}
		return s, nil
	}

	s.fallback = memory.NewKV(
		memory.WithClock(s.now),
		memory.WithSweepHook(s.swept),
	)
	return s, nil
}

// StartSweeper periodically evicts expired fallback entries. It is a no-op in production.
func (s *Store) StartSweeper(interval time.Duration) {
	if s.fallback != nil {
		s.fallback.StartSweeper(interval)
	}
}

// Sweep evicts expired fallback entries once and returns how many were removed.
func (s *Store) Sweep() int {
	if s.fallback == nil {
		return 0
	}
	return len(s.fallback.Sweep())
}

// Close stops the fallback sweeper.
func (s *Store) Close() error {
	if s.fallback != nil {
		return s.fallback.Close()
	}
	return nil
}

// TTL returns the configured session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get returns the live record for a user.
// A hit on the legacy key deletes it and reports session.ErrNotFound.
func (s *Store) Get(ctx context.Context, tenantID, userID string) (session.Record, error) {
	tenantID, userID, err := identity(tenantID, userID)
	if err != nil {
		return session.Record{}, err
	}
	return s.get(ctx, tenantID, userID)
}

func (s *Store) get(ctx context.Context, tenantID, userID string) (session.Record, error) {
	key := session.Key(tenantID, userID)
	data, found, err := s.read(ctx, "get", key)
	if err != nil {
		return session.Record{}, err
	}
	if !found {
		if err := s.migrateLegacy(ctx, tenantID, userID); err != nil {
			return session.Record{}, err
		}
		return session.Record{}, session.ErrNotFound
	}

	rec, err := session.Decode(data)
	if err != nil {
		logging.Warn().
			Add(logging.TenantID(tenantID)).
			Add(logging.UserID(userID)).
			Add(logging.ErrorField(err)).
			Msg("discarding undecodable session")
		if err := s.remove(ctx, "get", key); err != nil {
			return session.Record{}, err
		}
		s.emit(session.EventReset, tenantID, userID, "corrupt_payload")
		return session.Record{}, session.ErrNotFound
	}

	if rec.IsExpired(s.now()) {
		if err := s.remove(ctx, "get", key); err != nil {
			return session.Record{}, err
		}
		return session.Record{}, session.ErrNotFound
	}
	return rec, nil
}

// migrateLegacy drops a pre-tenant record so the user restarts under the tenant key.
func (s *Store) migrateLegacy(ctx context.Context, tenantID, userID string) error {
	legacy := session.LegacyKey(userID)
	_, found, err := s.read(ctx, "legacy_probe", legacy)
	if err != nil || !found {
		return err
	}
	if err := s.remove(ctx, "legacy_delete", legacy); err != nil {
		return err
	}
	s.emit(session.EventReset, tenantID, userID, "legacy_key_migration")
	return nil
}

// Create writes a fresh idle record, replacing any existing one.
func (s *Store) Create(ctx context.Context, tenantID, userID string) (session.Record, error) {
	tenantID, userID, err := identity(tenantID, userID)
	if err != nil {
		return session.Record{}, err
	}

	rec := session.New(tenantID, userID, s.now(), s.ttl)
	if err := s.put(ctx, "create", rec); err != nil {
		return session.Record{}, err
	}
	s.emit(session.EventCreated, tenantID, userID, "")
	return rec, nil
}

// Update merges a patch into the stored record, creating it when absent.
// ExpiresAt is preserved unless the patch extends the lifetime.
func (s *Store) Update(ctx context.Context, tenantID, userID string, patch session.Patch) (session.Record, error) {
	tenantID, userID, err := identity(tenantID, userID)
	if err != nil {
		return session.Record{}, err
	}

	now := s.now()
	rec, err := s.get(ctx, tenantID, userID)
	created := false
	switch {
	case errors.Is(err, session.ErrNotFound):
		rec = session.New(tenantID, userID, now, s.ttl)
		created = true
	case err != nil:
		return session.Record{}, err
	}

	patch.Apply(&rec)
	rec.UpdatedAt = now
	if patch.ExtendTTL {
		rec.ExpiresAt = now.Add(s.ttl)
	}
	if err := rec.Validate(); err != nil {
		return session.Record{}, err
	}

	if err := s.put(ctx, "update", rec); err != nil {
		return session.Record{}, err
	}
	if created {
		s.emit(session.EventCreated, tenantID, userID, "")
	}
	return rec, nil
}

// Extend pushes the expiry to now plus the configured lifetime.
func (s *Store) Extend(ctx context.Context, tenantID, userID string) (session.Record, error) {
	return s.Update(ctx, tenantID, userID, session.Patch{ExtendTTL: true})
}

// Delete removes the record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, tenantID, userID string) error {
	tenantID, userID, err := identity(tenantID, userID)
	if err != nil {
		return err
	}
	if err := s.remove(ctx, "delete", session.Key(tenantID, userID)); err != nil {
		return err
	}
	s.emit(session.EventDeleted, tenantID, userID, "")
	return nil
}

// Exists reports whether a live record exists.
func (s *Store) Exists(ctx context.Context, tenantID, userID string) (bool, error) {
	_, err := s.Get(ctx, tenantID, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, session.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// TTLRemaining returns the time until the record expires.
func (s *Store) TTLRemaining(ctx context.Context, tenantID, userID string) (time.Duration, error) {
	rec, err := s.Get(ctx, tenantID, userID)
	if err != nil {
		return 0, err
	}
	return rec.ExpiresAt.Sub(s.now()), nil
}

func (s *Store) put(ctx context.Context, op string, rec session.Record) error {
	data, err := session.Encode(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		ttl = s.ttl
	}
	return s.write(ctx, op, session.Key(rec.TenantID, rec.UserID), data, ttl)
}

func (s *Store) read(ctx context.Context, op, key string) ([]byte, bool, error) {
	if s.primary != nil {
		data, found, err := s.primary.Get(ctx, key)
		switch {
		case err == nil && (found || s.fallback == nil):
			return data, found, nil
		case err == nil:
			// A write may have landed in the fallback while the primary was down.
		case ctx.Err() != nil:
			return nil, false, ctx.Err()
		case s.fallback == nil:
			return nil, false, &session.InfrastructureError{Op: op, Key: key, Err: err}
		default:
			s.degraded(ctx, op, key, err)
		}
	}

	data, found, err := s.fallback.Get(ctx, key)
	if err != nil {
		return nil, false, &session.InfrastructureError{Op: op, Key: key, Err: err}
	}
	return data, found, nil
}

func (s *Store) write(ctx context.Context, op, key string, data []byte, ttl time.Duration) error {
	if s.primary != nil {
		err := s.primary.Set(ctx, key, data, kv.SetOptions{TTL: ttl})
		switch {
		case err == nil:
			if s.fallback != nil {
				_ = s.fallback.Delete(ctx, key)
			}
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case s.fallback == nil:
			return &session.InfrastructureError{Op: op, Key: key, Err: err}
		default:
			s.degraded(ctx, op, key, err)
		}
	}

	if err := s.fallback.Set(ctx, key, data, kv.SetOptions{TTL: ttl}); err != nil {
		return &session.InfrastructureError{Op: op, Key: key, Err: err}
	}
	return nil
}

func (s *Store) remove(ctx context.Context, op, key string) error {
	if s.primary != nil {
		err := s.primary.Delete(ctx, key)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return ctx.Err()
		case s.fallback == nil:
			return &session.InfrastructureError{Op: op, Key: key, Err: err}
		default:
			s.degraded(ctx, op, key, err)
		}
	}
	if s.fallback != nil {
		if err := s.fallback.Delete(ctx, key); err != nil {
			return &session.InfrastructureError{Op: op, Key: key, Err: err}
		}
	}
	return nil
}

func (s *Store) degraded(ctx context.Context, op, key string, err error) {
	logging.Warn().
		Add(logging.Operation(op)).
		Add(logging.Str("key", key)).
		Add(logging.ErrorField(err)).
		Msg("session backend unavailable, using in-process fallback")
	s.metrics.RecordSessionFallback(ctx, op)

	tenantID, userID := splitKey(key)
	s.emit(session.EventFallback, tenantID, userID, op)
}

// swept reports fallback evictions of session keys.
func (s *Store) swept(keys []string) {
	for _, key := range keys {
		tenantID, userID := splitKey(key)
		if userID == "" {
			continue
		}
		s.emit(session.EventSwept, tenantID, userID, "expired")
	}
}

func (s *Store) emit(t session.EventType, tenantID, userID, reason string) {
	ev := session.Event{
		Type:     t,
		TenantID: tenantID,
		UserID:   userID,
		Reason:   reason,
		At:       s.now(),
	}

	logging.Debug().
		Add(logging.Str("session_event", string(t))).
		Add(logging.TenantID(tenantID)).
		Add(logging.UserID(userID)).
		Add(logging.Reason(reason)).
		Msg("session event")

	if t == session.EventReset {
		s.metrics.RecordSessionReset(context.Background(), reason)
	}
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

// splitKey parses "session:{tenant}:{user}" and the legacy "session:{user}".
func splitKey(key string) (tenantID, userID string) {
	rest, ok := strings.CutPrefix(key, "session:")
	if !ok {
		return "", ""
	}
	if t, u, ok := strings.Cut(rest, ":"); ok {
		return t, u
	}
	return "", rest
}

func identity(tenantID, userID string) (string, string, error) {
	tenantID, err := tenant.Require(tenantID)
	if err != nil {
		return "", "", err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", "", session.ErrInvalidUserID
	}
	return tenantID, userID, nil
}
