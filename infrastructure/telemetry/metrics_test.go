package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestProvider(t *testing.T) (*MetricsProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp, err := NewMetricsProvider(MetricsConfig{
		MeterName:     "test",
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	})
	if err != nil {
		t.Fatalf("NewMetricsProvider() error = %v", err)
	}
	return mp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()

	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("aggregation is %T, want Sum[int64]", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsProvider_Counters(t *testing.T) {
	t.Parallel()

	mp, reader := newTestProvider(t)
	ctx := context.Background()

	mp.RecordTransition(ctx, "idle", "awaiting_destination", "freight_query")
	mp.RecordTransition(ctx, "awaiting_destination", "awaiting_quantity", "provide_destination")
	mp.RecordSessionReset(ctx, "user_reset")
	mp.RecordSessionFallback(ctx, "get")
	mp.RecordCacheHit(ctx)
	mp.RecordCacheMiss(ctx)
	mp.RecordCacheMiss(ctx)
	mp.RecordPersistFailure(ctx)

	got := collect(t, reader)
	tests := []struct {
		name string
		want int64
	}{
		{"freight.conversation.transitions", 2},
		{"freight.session.resets", 1},
		{"freight.session.fallbacks", 1},
		{"freight.quote.cache.hits", 1},
		{"freight.quote.cache.misses", 2},
		{"freight.simulation.persist_failures", 1},
	}
	for _, tt := range tests {
		data, ok := got[tt.name]
		if !ok {
			t.Errorf("metric %s not recorded", tt.name)
			continue
		}
		if v := sumOf(t, data); v != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, v, tt.want)
		}
	}
}

func TestMetricsProvider_ProviderCall(t *testing.T) {
	t.Parallel()

	mp, reader := newTestProvider(t)
	ctx := context.Background()

	mp.RecordProviderCall(ctx, "light_api", 20*time.Millisecond, nil)
	mp.RecordProviderCall(ctx, "heavy_table", 5*time.Millisecond, errors.New("boom"))

	got := collect(t, reader)
	if v := sumOf(t, got["freight.provider.failures"]); v != 1 {
		t.Errorf("failures = %d, want 1", v)
	}

	hist, ok := got["freight.provider.duration"].(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("duration is %T", got["freight.provider.duration"])
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Errorf("duration count = %d, want 2", count)
	}
}

func TestMetricsProvider_Quote(t *testing.T) {
	t.Parallel()

	mp, reader := newTestProvider(t)
	mp.RecordQuote(context.Background(), "mixed", 3, 40*time.Millisecond)

	got := collect(t, reader)
	if _, ok := got["freight.quote.duration"]; !ok {
		t.Error("freight.quote.duration not recorded")
	}
}

func TestNewMetricsProvider_DefaultMeterName(t *testing.T) {
	t.Parallel()

	mp, err := NewMetricsProvider(MetricsConfig{})
	if err != nil {
		t.Fatalf("NewMetricsProvider() error = %v", err)
	}
	mp.RecordCacheHit(context.Background())
}

func TestNoopMetrics(t *testing.T) {
	t.Parallel()

	var m Metrics = NoopMetrics{}
	ctx := context.Background()
	m.RecordTransition(ctx, "a", "b", "c")
	m.RecordSessionReset(ctx, "r")
	m.RecordSessionFallback(ctx, "get")
	m.RecordCacheHit(ctx)
	m.RecordCacheMiss(ctx)
	m.RecordProviderCall(ctx, "light_api", time.Millisecond, nil)
	m.RecordQuote(ctx, "mixed", 0, time.Millisecond)
	m.RecordPersistFailure(ctx)
}
