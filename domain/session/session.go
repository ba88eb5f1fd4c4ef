// Package session provides the persisted conversation record, its key scheme and
// its versioned payload format.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/freight-agent/domain/conversation"
)

// CurrentSchemaVersion is the payload version written by this build.
// Version 0 is the pre-versioned payload.
const CurrentSchemaVersion = 1

// Record is the per-tenant, per-user conversation state.
// Zero values of Destination, Quantity and TotalWeight mean "not set".
type Record struct {
	SchemaVersion int                `json:"schema_version"`
	TenantID      string             `json:"tenant_id"`
	UserID        string             `json:"user_id"`
	State         conversation.State `json:"state"`
	Destination   string             `json:"destination,omitempty"`
	Quantity      int                `json:"quantity,omitempty"`
	TotalWeight   float64            `json:"total_weight,omitempty"`
	ErrorCount    int                `json:"error_count"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	ExpiresAt     time.Time          `json:"expires_at"`
}

// New creates an idle record.
func New(tenantID, userID string, now time.Time, ttl time.Duration) Record {
	return Record{
		SchemaVersion: CurrentSchemaVersion,
		TenantID:      tenantID,
		UserID:        userID,
		State:         conversation.StateIdle,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	if r.TenantID == "" || r.UserID == "" {
		return fmt.Errorf("%w: tenant and user are required", ErrInvalidRecord)
	}
	if !r.State.IsValid() {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidRecord, r.State)
	}
	if r.Quantity > 0 && r.Destination == "" {
		return fmt.Errorf("%w: quantity set without destination", ErrInvalidRecord)
	}
	if r.TotalWeight > 0 && r.Quantity <= 0 {
		return fmt.Errorf("%w: total weight set without quantity", ErrInvalidRecord)
	}
	return nil
}

// IsExpired returns true if the record outlived its TTL at now.
func (r Record) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Key returns the tenant-scoped storage key.
func Key(tenantID, userID string) string {
	return "session:" + tenantID + ":" + userID
}

// LegacyKey returns the pre-tenant storage key. It is only probed to drive the
// one-time migration.
func LegacyKey(userID string) string {
	return "session:" + userID
}

// Encode serializes a record at the current schema version.
func Encode(r Record) ([]byte, error) {
	r.SchemaVersion = CurrentSchemaVersion
	return json.Marshal(r)
}

// Decode parses a payload and upgrades it to the current schema version.
// Unknown fields are ignored so newer writers stay readable.
func Decode(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	for r.SchemaVersion < CurrentSchemaVersion {
		upgrade, ok := upgrades[r.SchemaVersion]
		if !ok {
			return Record{}, fmt.Errorf("%w: unknown schema version %d", ErrCorruptPayload, r.SchemaVersion)
		}
		upgrade(&r)
		r.SchemaVersion++
	}
	return r, nil
}

// upgrades[n] converts a version n payload into version n+1.
var upgrades = map[int]func(*Record){
	0: func(r *Record) {
		if r.State == "" {
			r.State = conversation.StateIdle
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = r.CreatedAt
		}
	},
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	State       *conversation.State
	Destination *string
	Quantity    *int
	TotalWeight *float64
	ErrorCount  *int
	// ExtendTTL resets ExpiresAt to now plus the configured lifetime.
	ExtendTTL bool
}

// Apply merges the patch into r.
func (p Patch) Apply(r *Record) {
	if p.State != nil {
		r.State = *p.State
	}
	if p.Destination != nil {
		r.Destination = *p.Destination
	}
	if p.Quantity != nil {
		r.Quantity = *p.Quantity
	}
	if p.TotalWeight != nil {
		r.TotalWeight = *p.TotalWeight
	}
	if p.ErrorCount != nil {
		r.ErrorCount = *p.ErrorCount
	}
}

// PatchFrom builds a patch that copies the conversation fields of r.
func PatchFrom(r Record) Patch {
	return Patch{
		State:       &r.State,
		Destination: &r.Destination,
		Quantity:    &r.Quantity,
		TotalWeight: &r.TotalWeight,
		ErrorCount:  &r.ErrorCount,
	}
}

// EventType classifies session lifecycle events.
type EventType string

// Session lifecycle events.
const (
	EventCreated  EventType = "session_created"
	EventReset    EventType = "session_reset"
	EventDeleted  EventType = "session_deleted"
	EventFallback EventType = "session_fallback"
	EventSwept    EventType = "session_expired_sweep"
)

// Event is emitted by the store for observability.
type Event struct {
	Type     EventType
	TenantID string
	UserID   string
	Reason   string
	At       time.Time
}
