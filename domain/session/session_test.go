package session

import (
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/freight-agent/domain/conversation"
)

func TestKeys(t *testing.T) {
	t.Parallel()

	if got := Key("acme", "5511999"); got != "session:acme:5511999" {
		t.Errorf("Key() = %s", got)
	}
	if got := LegacyKey("5511999"); got != "session:5511999" {
		t.Errorf("LegacyKey() = %s", got)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := New("acme", "u1", now, 30*time.Minute)

	if r.State != conversation.StateIdle {
		t.Errorf("State = %s, want idle", r.State)
	}
	if r.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %d", r.SchemaVersion)
	}
	if !r.ExpiresAt.Equal(now.Add(30 * time.Minute)) {
		t.Errorf("ExpiresAt = %v", r.ExpiresAt)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestRecord_Validate(t *testing.T) {
	t.Parallel()

	base := New("acme", "u1", time.Now(), time.Minute)

	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"missing tenant", func(r *Record) { r.TenantID = "" }},
		{"missing user", func(r *Record) { r.UserID = "" }},
		{"unknown state", func(r *Record) { r.State = "sleeping" }},
		{"quantity without destination", func(r *Record) { r.Quantity = 3 }},
		{"weight without quantity", func(r *Record) {
			r.Destination = "01001000"
			r.TotalWeight = 1.5
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := base
			tt.mutate(&r)
			if err := r.Validate(); !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("Validate() error = %v, want ErrInvalidRecord", err)
			}
		})
	}
}

func TestRecord_IsExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	r := New("acme", "u1", now, time.Minute)

	if r.IsExpired(now) {
		t.Error("fresh record should not be expired")
	}
	if !r.IsExpired(now.Add(time.Minute)) {
		t.Error("record should expire at ExpiresAt")
	}
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := New("acme", "u1", now, time.Minute)
	r.State = conversation.StateAwaitingQuantity
	r.Destination = "01001000"

	data, err := Encode(r)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got != r {
		t.Errorf("Decode(Encode(r)) = %+v, want %+v", got, r)
	}
}

func TestDecode_UpgradesUnversionedPayload(t *testing.T) {
	t.Parallel()

	payload := `{"tenant_id":"acme","user_id":"u1","created_at":"2026-01-02T03:04:05Z","future_field":true}`

	got, err := Decode([]byte(payload))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", got.SchemaVersion, CurrentSchemaVersion)
	}
	if got.State != conversation.StateIdle {
		t.Errorf("State = %s, want idle", got.State)
	}
	if !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Errorf("UpdatedAt = %v, want CreatedAt", got.UpdatedAt)
	}
}

func TestDecode_Corrupt(t *testing.T) {
	t.Parallel()

	if _, err := Decode([]byte("{not json")); !errors.Is(err, ErrCorruptPayload) {
		t.Errorf("Decode() error = %v, want ErrCorruptPayload", err)
	}
}

func TestPatch_Apply(t *testing.T) {
	t.Parallel()

	r := New("acme", "u1", time.Now(), time.Minute)
	state := conversation.StateAwaitingQuantity
	dest := "01001000"

	Patch{State: &state, Destination: &dest}.Apply(&r)

	if r.State != state || r.Destination != dest {
		t.Errorf("Apply() = %+v", r)
	}
	if r.Quantity != 0 {
		t.Errorf("untouched field changed: Quantity = %d", r.Quantity)
	}
}

func TestInfrastructureError(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: refused")
	err := error(&InfrastructureError{Op: "get", Key: "session:a:b", Err: cause})

	if !errors.Is(err, ErrInfrastructure) {
		t.Error("should match ErrInfrastructure")
	}
	if !errors.Is(err, cause) {
		t.Error("should unwrap to cause")
	}
}
