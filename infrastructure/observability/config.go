// Package observability configures OpenTelemetry span export.
package observability

import (
	"io"
	"time"

	domainconfig "github.com/felixgeelhaar/freight-agent/domain/config"
)

// Config configures the observability infrastructure.
type Config struct {
	// ServiceName is the name of the service for telemetry.
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Environment is the deployment profile.
	Environment string

	// Tracing configures span export.
	Tracing TracingConfig
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Exporter specifies the trace exporter type.
	Exporter ExporterType

	// Endpoint is the OTLP endpoint (e.g., "localhost:4317").
	Endpoint string

	// Insecure disables TLS for the exporter connection.
	Insecure bool

	// SampleRate is the sampling rate (0.0-1.0, default: 1.0).
	SampleRate float64

	// BatchTimeout is the batch export timeout.
	BatchTimeout time.Duration

	// Writer receives stdout exporter output. Nil means os.Stdout.
	Writer io.Writer
}

// ExporterType specifies the telemetry exporter.
type ExporterType string

const (
	// ExporterOTLP exports to an OTLP gRPC endpoint (e.g., Jaeger, Tempo).
	ExporterOTLP ExporterType = "otlp"

	// ExporterStdout exports to stdout (useful for development).
	ExporterStdout ExporterType = "stdout"

	// ExporterNoop disables export.
	ExporterNoop ExporterType = "noop"
)

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "freight-agent",
		ServiceVersion: "dev",
		Environment:    "development",
		Tracing: TracingConfig{
			Exporter:     ExporterNoop,
			SampleRate:   1.0,
			BatchTimeout: 5 * time.Second,
		},
	}
}

// Option configures the observability infrastructure.
type Option func(*Config)

// WithServiceVersion sets the service version.
func WithServiceVersion(version string) Option {
	return func(c *Config) {
		c.ServiceVersion = version
	}
}

// WithStdoutTracing exports spans as JSON to w.
func WithStdoutTracing(w io.Writer) Option {
	return func(c *Config) {
		c.Tracing.Exporter = ExporterStdout
		c.Tracing.Writer = w
	}
}

// WithOTLP exports spans to an OTLP gRPC endpoint.
func WithOTLP(endpoint string, insecure bool) Option {
	return func(c *Config) {
		c.Tracing.Exporter = ExporterOTLP
		c.Tracing.Endpoint = endpoint
		c.Tracing.Insecure = insecure
	}
}

// WithSampleRate sets the trace sampling rate.
func WithSampleRate(rate float64) Option {
	return func(c *Config) {
		c.Tracing.SampleRate = rate
	}
}

// FromAppConfig maps the telemetry section of the service configuration.
func FromAppConfig(cfg *domainconfig.AppConfig) Option {
	return func(c *Config) {
		c.Environment = string(cfg.Profile)
		if cfg.Telemetry.MeterName != "" {
			c.ServiceName = cfg.Telemetry.MeterName
		}
		tr := cfg.Telemetry.Tracing
		if tr.Exporter != "" {
			c.Tracing.Exporter = ExporterType(tr.Exporter)
		}
		c.Tracing.Endpoint = tr.Endpoint
		c.Tracing.Insecure = tr.Insecure
		c.Tracing.SampleRate = tr.SampleRate
	}
}
