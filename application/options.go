package application

import (
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"

	domainconfig "github.com/felixgeelhaar/freight-agent/domain/config"
	"github.com/felixgeelhaar/freight-agent/domain/freight"
	"github.com/felixgeelhaar/freight-agent/domain/kv"
	"github.com/felixgeelhaar/freight-agent/infrastructure/resilience"
	"github.com/felixgeelhaar/freight-agent/infrastructure/telemetry"
)

// Option configures the freight engine.
type Option func(*FreightEngineConfig)

// WithLightProviders adds parcel providers.
func WithLightProviders(p ...freight.Provider) Option {
	return func(c *FreightEngineConfig) {
		c.LightProviders = append(c.LightProviders, p...)
	}
}

// WithHeavyProviders adds freight table providers.
func WithHeavyProviders(p ...freight.Provider) Option {
	return func(c *FreightEngineConfig) {
		c.HeavyProviders = append(c.HeavyProviders, p...)
	}
}

// WithExecutor sets the resilient provider executor.
func WithExecutor(e *resilience.ProviderExecutor) Option {
	return func(c *FreightEngineConfig) {
		c.Executor = e
	}
}

// WithCache enables the read-through result cache.
func WithCache(b kv.Backend, ttl time.Duration) Option {
	return func(c *FreightEngineConfig) {
		c.Cache = b
		c.CacheTTL = ttl
	}
}

// WithSimulationSink records the best option of every calculation.
func WithSimulationSink(s freight.SimulationSink) Option {
	return func(c *FreightEngineConfig) {
		c.Sink = s
	}
}

// WithThresholds sets the strategy weight bands.
func WithThresholds(t freight.Thresholds) Option {
	return func(c *FreightEngineConfig) {
		c.Thresholds = t
	}
}

// WithWeights sets the ranking weights.
func WithWeights(w freight.Weights) Option {
	return func(c *FreightEngineConfig) {
		c.Weights = w
	}
}

// WithEconomics sets the default economic context for margin ranking.
func WithEconomics(e *freight.EconomicContext) Option {
	return func(c *FreightEngineConfig) {
		c.Economics = e
	}
}

// WithUnitWeight sets the default weight of one unit in kg.
func WithUnitWeight(kg float64) Option {
	return func(c *FreightEngineConfig) {
		c.UnitWeight = kg
	}
}

// WithMaxQuantity bounds accepted quantities.
func WithMaxQuantity(n int) Option {
	return func(c *FreightEngineConfig) {
		c.MaxQuantity = n
	}
}

// WithTopN caps the returned options.
func WithTopN(n int) Option {
	return func(c *FreightEngineConfig) {
		c.TopN = n
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *FreightEngineConfig) {
		c.Metrics = m
	}
}

// WithTracer sets the tracer used for calculation spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *FreightEngineConfig) {
		c.Tracer = t
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *FreightEngineConfig) {
		c.Clock = now
	}
}

// WithFreightConfig applies the freight and conversation sections of the
// service configuration.
func WithFreightConfig(cfg *domainconfig.AppConfig) Option {
	return func(c *FreightEngineConfig) {
		f := cfg.Freight
		c.Thresholds = freight.Thresholds{Light: f.LightThreshold, Heavy: f.HeavyThreshold}
		c.Weights = freight.Weights{Price: f.Weights.Price, Time: f.Weights.Time, Margin: f.Weights.Margin}
		c.TopN = f.TopN
		c.CacheTTL = f.CacheTTL.Duration()
		if f.Economics != nil {
			c.Economics = &freight.EconomicContext{
				ProductCost:     decimal.NewFromFloat(f.Economics.ProductCost),
				SellingPrice:    decimal.NewFromFloat(f.Economics.SellingPrice),
				OperationalCost: decimal.NewFromFloat(f.Economics.OperationalCost),
			}
		}
		c.UnitWeight = cfg.Conversation.DefaultUnitWeight
		c.MaxQuantity = cfg.Conversation.MaxQuantity
	}
}

// New creates a freight engine from options.
func New(opts ...Option) (*FreightEngine, error) {
	var config FreightEngineConfig
	for _, opt := range opts {
		opt(&config)
	}
	return NewFreightEngine(config)
}
