package logging

import (
	"strconv"
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/freight-agent/domain/conversation"
	"github.com/felixgeelhaar/freight-agent/domain/freight"
	"github.com/felixgeelhaar/freight-agent/domain/intent"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// TenantID adds a tenant_id field.
func TenantID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("tenant_id", id)
	}
}

// UserID adds a user_id field.
func UserID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("user_id", id)
	}
}

// State adds a state field.
func State(s conversation.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("state", string(s))
	}
}

// FromState adds a from_state field for transitions.
func FromState(s conversation.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_state", string(s))
	}
}

// ToState adds a to_state field for transitions.
func ToState(s conversation.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_state", string(s))
	}
}

// Event adds a conversation event field.
func Event(ev conversation.Event) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("event", string(ev))
	}
}

// Intent adds the classified intent and its confidence.
func Intent(r intent.Result) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("intent", string(r.Intent)).
			Str("confidence", strconv.FormatFloat(r.Confidence, 'f', 2, 64))
	}
}

// Strategy adds a weight strategy field.
func Strategy(s freight.WeightStrategy) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("strategy", string(s))
	}
}

// Source adds a quote source field.
func Source(s freight.Source) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("source", string(s))
	}
}

// Weight adds a total weight field in kg.
func Weight(kg float64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("total_weight_kg", strconv.FormatFloat(kg, 'f', 3, 64))
	}
}

// Fingerprint adds a request fingerprint field.
func Fingerprint(fp string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("fingerprint", fp)
	}
}

// Options adds a candidate count field.
func Options(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("options", n)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// Cached adds a cached field.
func Cached(cached bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("cached", cached)
	}
}

// Degraded adds a degraded field.
func Degraded(degraded bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("degraded", degraded)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Operation adds an operation field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// Str adds a custom string field.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// Int adds a custom int field.
func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, value)
	}
}
