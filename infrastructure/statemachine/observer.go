package statemachine

import (
	"context"

	"github.com/felixgeelhaar/freight-agent/domain/conversation"
	"github.com/felixgeelhaar/freight-agent/infrastructure/logging"
	"github.com/felixgeelhaar/freight-agent/infrastructure/telemetry"
)

// Observer receives every accepted transition.
type Observer func(conversation.TransitionRecord)

// LogObserver logs each transition and counts it. A nil metrics discards counts.
func LogObserver(metrics telemetry.Metrics) Observer {
	if metrics == nil {
		metrics = telemetry.NoopMetrics{}
	}
	return func(rec conversation.TransitionRecord) {
		logging.Info().
			Add(logging.TenantID(rec.TenantID)).
			Add(logging.UserID(rec.UserID)).
			Add(logging.FromState(rec.From)).
			Add(logging.ToState(rec.To)).
			Add(logging.Event(rec.Event)).
			Msg("conversation transition")

		metrics.RecordTransition(context.Background(), rec.From.String(), rec.To.String(), rec.Event.String())
	}
}
