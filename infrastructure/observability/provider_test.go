package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	domainconfig "github.com/felixgeelhaar/freight-agent/domain/config"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.ServiceName != "freight-agent" {
		t.Errorf("ServiceName = %s", cfg.ServiceName)
	}
	if cfg.Tracing.Exporter != ExporterNoop {
		t.Errorf("Exporter = %s, want noop", cfg.Tracing.Exporter)
	}
}

func TestNew_Noop(t *testing.T) {
	t.Parallel()

	p, err := New(context.Background())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.TracerProvider() == nil {
		t.Fatal("TracerProvider() returned nil")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_UnknownExporter(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), func(c *Config) { c.Tracing.Exporter = "zipkin" })
	if !errors.Is(err, ErrUnknownExporter) {
		t.Errorf("New() error = %v, want ErrUnknownExporter", err)
	}
}

func TestNew_StdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(context.Background(), WithStdoutTracing(&buf))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "freight.calculate")
	span.End()

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !strings.Contains(buf.String(), "freight.calculate") {
		t.Errorf("expected span in output: %s", buf.String())
	}
}

func TestFromAppConfig(t *testing.T) {
	t.Parallel()

	app := domainconfig.DefaultAppConfig()
	app.Profile = domainconfig.ProfileProduction
	app.Telemetry.Tracing = domainconfig.TracingConfig{
		Exporter:   "otlp",
		Endpoint:   "collector:4317",
		Insecure:   true,
		SampleRate: 0.25,
	}

	cfg := DefaultConfig()
	FromAppConfig(app)(&cfg)

	if cfg.Environment != "production" {
		t.Errorf("Environment = %s", cfg.Environment)
	}
	if cfg.Tracing.Exporter != ExporterOTLP || cfg.Tracing.Endpoint != "collector:4317" || !cfg.Tracing.Insecure {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.Tracing.SampleRate != 0.25 {
		t.Errorf("SampleRate = %v", cfg.Tracing.SampleRate)
	}
}

func TestSampler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0.0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased"},
	}
	for _, tt := range tests {
		if got := sampler(tt.rate).Description(); !strings.HasPrefix(got, tt.want) {
			t.Errorf("sampler(%v) = %s, want %s", tt.rate, got, tt.want)
		}
	}
}
