// Package telemetry records OpenTelemetry metrics for conversations,
// sessions and freight quoting.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordTransition(ctx context.Context, from, to, event string)
	RecordSessionReset(ctx context.Context, reason string)
	RecordSessionFallback(ctx context.Context, op string)
	RecordCacheHit(ctx context.Context)
	RecordCacheMiss(ctx context.Context)
	RecordProviderCall(ctx context.Context, source string, duration time.Duration, err error)
	RecordQuote(ctx context.Context, strategy string, options int, duration time.Duration)
	RecordPersistFailure(ctx context.Context)
}

// MetricsProvider records metrics through an OpenTelemetry meter.
type MetricsProvider struct {
	meter metric.Meter

	transitions      metric.Int64Counter
	sessionResets    metric.Int64Counter
	sessionFallbacks metric.Int64Counter
	cacheHits        metric.Int64Counter
	cacheMisses      metric.Int64Counter
	providerFailures metric.Int64Counter
	persistFailures  metric.Int64Counter

	providerDuration metric.Float64Histogram
	quoteDuration    metric.Float64Histogram
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter (default: "freight-agent").
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// MeterProvider overrides the global meter provider.
	MeterProvider metric.MeterProvider
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "freight-agent",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a metrics provider with all instruments registered.
func NewMetricsProvider(config MetricsConfig) (*MetricsProvider, error) {
	if config.MeterName == "" {
		config.MeterName = DefaultMetricsConfig().MeterName
	}
	provider := config.MeterProvider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	mp := &MetricsProvider{
		meter: provider.Meter(config.MeterName, metric.WithInstrumentationVersion(config.MeterVersion)),
	}
	if err := mp.initInstruments(); err != nil {
		return nil, err
	}
	return mp, nil
}

func (mp *MetricsProvider) initInstruments() error {
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&mp.transitions, "freight.conversation.transitions", "Number of conversation state transitions", "{transition}"},
		{&mp.sessionResets, "freight.session.resets", "Number of sessions reset", "{reset}"},
		{&mp.sessionFallbacks, "freight.session.fallbacks", "Number of fresh sessions served after a store failure", "{fallback}"},
		{&mp.cacheHits, "freight.quote.cache.hits", "Number of quote cache hits", "{hit}"},
		{&mp.cacheMisses, "freight.quote.cache.misses", "Number of quote cache misses", "{miss}"},
		{&mp.providerFailures, "freight.provider.failures", "Number of failed provider calls", "{failure}"},
		{&mp.persistFailures, "freight.simulation.persist_failures", "Number of simulation records that failed to persist", "{failure}"},
	}
	for _, c := range counters {
		inst, err := mp.meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return err
		}
		*c.dst = inst
	}

	var err error
	mp.providerDuration, err = mp.meter.Float64Histogram(
		"freight.provider.duration",
		metric.WithDescription("Duration of provider quote calls"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.quoteDuration, err = mp.meter.Float64Histogram(
		"freight.quote.duration",
		metric.WithDescription("Duration of freight calculations"),
		metric.WithUnit("ms"),
	)
	return err
}

// RecordTransition records a conversation state transition.
func (mp *MetricsProvider) RecordTransition(ctx context.Context, from, to, event string) {
	mp.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state.from", from),
		attribute.String("state.to", to),
		attribute.String("event", event),
	))
}

// RecordSessionReset records a session reset.
func (mp *MetricsProvider) RecordSessionReset(ctx context.Context, reason string) {
	mp.sessionResets.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordSessionFallback records a fresh session served after a store failure.
func (mp *MetricsProvider) RecordSessionFallback(ctx context.Context, op string) {
	mp.sessionFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}

// RecordCacheHit records a quote cache hit.
func (mp *MetricsProvider) RecordCacheHit(ctx context.Context) {
	mp.cacheHits.Add(ctx, 1)
}

// RecordCacheMiss records a quote cache miss.
func (mp *MetricsProvider) RecordCacheMiss(ctx context.Context) {
	mp.cacheMisses.Add(ctx, 1)
}

// RecordProviderCall records the outcome of one provider call.
func (mp *MetricsProvider) RecordProviderCall(ctx context.Context, source string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("provider.source", source),
		attribute.Bool("success", err == nil),
	)
	mp.providerDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		mp.providerFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("provider.source", source)))
	}
}

// RecordQuote records a completed freight calculation.
func (mp *MetricsProvider) RecordQuote(ctx context.Context, strategy string, options int, duration time.Duration) {
	mp.quoteDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.Bool("empty", options == 0),
	))
}

// RecordPersistFailure records a simulation record that could not be stored.
func (mp *MetricsProvider) RecordPersistFailure(ctx context.Context) {
	mp.persistFailures.Add(ctx, 1)
}

// NoopMetrics discards all measurements.
type NoopMetrics struct{}

// RecordTransition is a no-op.
func (NoopMetrics) RecordTransition(context.Context, string, string, string) {}

// RecordSessionReset is a no-op.
func (NoopMetrics) RecordSessionReset(context.Context, string) {}

// RecordSessionFallback is a no-op.
func (NoopMetrics) RecordSessionFallback(context.Context, string) {}

// RecordCacheHit is a no-op.
func (NoopMetrics) RecordCacheHit(context.Context) {}

// RecordCacheMiss is a no-op.
func (NoopMetrics) RecordCacheMiss(context.Context) {}

// RecordProviderCall is a no-op.
func (NoopMetrics) RecordProviderCall(context.Context, string, time.Duration, error) {}

// RecordQuote is a no-op.
func (NoopMetrics) RecordQuote(context.Context, string, int, time.Duration) {}

// RecordPersistFailure is a no-op.
func (NoopMetrics) RecordPersistFailure(context.Context) {}

var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = NoopMetrics{}
)
