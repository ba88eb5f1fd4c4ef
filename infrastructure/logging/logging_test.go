package logging

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	domainconfig "github.com/felixgeelhaar/freight-agent/domain/config"
	"github.com/felixgeelhaar/freight-agent/domain/conversation"
	"github.com/felixgeelhaar/freight-agent/domain/freight"
	"github.com/felixgeelhaar/freight-agent/domain/intent"
)

// testLogger creates a logger that writes to a buffer for testing
func testLogger() (*bolt.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := bolt.NewJSONHandler(buf)
	logger := bolt.New(handler).SetLevel(bolt.TRACE)
	return logger, buf
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	if config.Level != "info" || config.Format != "console" {
		t.Errorf("DefaultConfig() = %+v", config)
	}
	if config.Output != os.Stderr {
		t.Errorf("Output = %v, want os.Stderr", config.Output)
	}
}

func TestConfigFrom(t *testing.T) {
	t.Parallel()

	cfg := domainconfig.DefaultAppConfig()
	cfg.Logging = domainconfig.LoggingConfig{Level: "debug", Format: "json"}
	if got := ConfigFrom(cfg); got.Level != "debug" || got.Format != "json" {
		t.Errorf("development ConfigFrom() = %+v", got)
	}

	cfg.Profile = domainconfig.ProfileProduction
	cfg.Logging.Format = "console"
	if got := ConfigFrom(cfg); got.Format != "json" {
		t.Errorf("production format = %s, want json", got.Format)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bolt.Level
	}{
		{"trace", bolt.TRACE},
		{"debug", bolt.DEBUG},
		{"info", bolt.INFO},
		{"warn", bolt.WARN},
		{"WARNING", bolt.WARN},
		{" Debug ", bolt.DEBUG},
		{"error", bolt.ERROR},
		{"unknown", bolt.INFO},
		{"", bolt.INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%s) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field Field
		want  string
	}{
		{"tenant", TenantID("acme"), `"tenant_id":"acme"`},
		{"user", UserID("5511999"), `"user_id":"5511999"`},
		{"state", State(conversation.StateComputing), `"state":"computing"`},
		{"from state", FromState(conversation.StateIdle), `"from_state":"idle"`},
		{"to state", ToState(conversation.StateAwaitingDestination), `"to_state":"awaiting_destination"`},
		{"event", Event(conversation.EventStartQuery), `"event":"START_QUERY"`},
		{"intent", Intent(intent.Result{Intent: intent.FreightQuery, Confidence: 0.9}), `"intent":"freight_query"`},
		{"confidence", Intent(intent.Result{Intent: intent.FreightQuery, Confidence: 0.9}), `"confidence":"0.90"`},
		{"strategy", Strategy(freight.StrategyMixed), `"strategy":"mixed"`},
		{"source", Source(freight.SourceHeavyTable), `"source":"heavy_table"`},
		{"weight", Weight(1.5), `"total_weight_kg":"1.500"`},
		{"fingerprint", Fingerprint("abc"), `"fingerprint":"abc"`},
		{"options", Options(3), `"options":3`},
		{"duration", Duration(100 * time.Millisecond), `"duration_ms":100`},
		{"cached", Cached(true), `"cached":true`},
		{"degraded", Degraded(true), `"degraded":true`},
		{"reason", Reason("legacy key"), `"reason":"legacy key"`},
		{"component", Component("engine"), `"component":"engine"`},
		{"operation", Operation("calculate"), `"operation":"calculate"`},
		{"str", Str("k", "v"), `"k":"v"`},
		{"int", Int("n", 7), `"n":7`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			logger, buf := testLogger()
			tt.field(logger.Info()).Msg("test")
			if !bytes.Contains(buf.Bytes(), []byte(tt.want)) {
				t.Errorf("expected %s in output: %s", tt.want, buf.String())
			}
		})
	}
}

func TestErrorField(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	ErrorField(errors.New("redis down"))(logger.Error()).Msg("test")
	if !bytes.Contains(buf.Bytes(), []byte("redis down")) {
		t.Errorf("expected error in output: %s", buf.String())
	}

	buf.Reset()
	ErrorField(nil)(logger.Info()).Msg("ok")
	if bytes.Contains(buf.Bytes(), []byte(`"error"`)) {
		t.Errorf("nil error should add nothing: %s", buf.String())
	}
}

func TestLogEvent(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()

	event := &LogEvent{event: logger.Info()}
	event.Add(TenantID("acme")).Add(State(conversation.StateIdle)).Msg("test")

	if !bytes.Contains(buf.Bytes(), []byte(`"tenant_id":"acme"`)) {
		t.Errorf("expected tenant_id field in output: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"state":"idle"`)) {
		t.Errorf("expected state field in output: %s", buf.String())
	}

	buf.Reset()
	NewEvent(logger.Warn()).Add(UserID("u1")).Send()
	if !bytes.Contains(buf.Bytes(), []byte(`"user_id":"u1"`)) {
		t.Errorf("expected user_id field in output: %s", buf.String())
	}
}

func TestInitReplacesLogger(t *testing.T) {
	var first, second bytes.Buffer

	Init(Config{Level: "info", Format: "json", Output: &first})
	Info().Add(TenantID("acme")).Msg("first")

	Init(Config{Level: "info", Format: "json", Output: &second})
	Info().Add(TenantID("acme")).Msg("second")
	Debug().Msg("filtered")

	if !bytes.Contains(first.Bytes(), []byte("first")) || bytes.Contains(first.Bytes(), []byte("second")) {
		t.Errorf("first output = %s", first.String())
	}
	if !bytes.Contains(second.Bytes(), []byte("second")) {
		t.Errorf("second output = %s", second.String())
	}
	if bytes.Contains(second.Bytes(), []byte("filtered")) {
		t.Errorf("debug event logged at info level: %s", second.String())
	}

	SetLevel("debug")
	Debug().Msg("visible")
	if !bytes.Contains(second.Bytes(), []byte("visible")) {
		t.Errorf("SetLevel did not apply: %s", second.String())
	}

	Init(DefaultConfig())
	if Get() == nil {
		t.Fatal("Get() returned nil")
	}
}
