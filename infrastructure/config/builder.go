package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainconfig "github.com/felixgeelhaar/freight-agent/domain/config"
	"github.com/felixgeelhaar/freight-agent/domain/freight"
	"github.com/felixgeelhaar/freight-agent/infrastructure/resilience"
)

// Builder builds domain settings from configuration.
type Builder struct {
	config *domainconfig.AppConfig
}

// NewBuilder creates a new configuration builder.
func NewBuilder(config *domainconfig.AppConfig) *Builder {
	return &Builder{config: config}
}

// BuildResult contains the settings derived from configuration.
type BuildResult struct {
	// Thresholds select the weight strategy.
	Thresholds freight.Thresholds
	// Weights are the ranking weights.
	Weights freight.Weights
	// Economics is the optional margin context.
	Economics *freight.EconomicContext
	// TopN caps the displayed options.
	TopN int
	// CacheTTL is the quote cache lifetime.
	CacheTTL time.Duration
	// DefaultUnitWeight is the per-unit weight in kg.
	DefaultUnitWeight float64
	// MaxQuantity bounds accepted quantities.
	MaxQuantity int
	// MaxErrors is the number of invalid answers tolerated.
	MaxErrors int
	// SessionTTL is the session lifetime.
	SessionTTL time.Duration
	// SweepInterval is the fallback eviction interval.
	SweepInterval time.Duration
	// StaticQuotes are fixed candidates for the static provider.
	StaticQuotes []freight.QuoteCandidate
	// Executor is the provider call policy.
	Executor resilience.ExecutorConfig
}

// Build derives the domain settings.
func (b *Builder) Build() (*BuildResult, error) {
	cfg := b.config
	result := &BuildResult{
		Thresholds: freight.Thresholds{
			Light: cfg.Freight.LightThreshold,
			Heavy: cfg.Freight.HeavyThreshold,
		},
		Weights: freight.Weights{
			Price:  cfg.Freight.Weights.Price,
			Time:   cfg.Freight.Weights.Time,
			Margin: cfg.Freight.Weights.Margin,
		},
		TopN:              cfg.Freight.TopN,
		CacheTTL:          cfg.Freight.CacheTTL.Duration(),
		DefaultUnitWeight: cfg.Conversation.DefaultUnitWeight,
		MaxQuantity:       cfg.Conversation.MaxQuantity,
		MaxErrors:         cfg.Conversation.MaxErrors,
		SessionTTL:        cfg.Session.TTL.Duration(),
		SweepInterval:     cfg.Session.SweepInterval.Duration(),
		Executor:          resilience.ConfigFrom(cfg.Freight),
	}

	if result.Thresholds.Heavy < result.Thresholds.Light {
		return nil, fmt.Errorf("%w: heavy threshold %.2f below light threshold %.2f",
			domainconfig.ErrBuildFailed, result.Thresholds.Heavy, result.Thresholds.Light)
	}
	if result.Weights.IsZero() {
		result.Weights = freight.DefaultWeights()
	}

	if e := cfg.Freight.Economics; e != nil {
		result.Economics = &freight.EconomicContext{
			ProductCost:     decimal.NewFromFloat(e.ProductCost),
			SellingPrice:    decimal.NewFromFloat(e.SellingPrice),
			OperationalCost: decimal.NewFromFloat(e.OperationalCost),
		}
	}

	quotes, err := b.buildStaticQuotes()
	if err != nil {
		return nil, fmt.Errorf("building static quotes: %w", err)
	}
	result.StaticQuotes = quotes

	return result, nil
}

// staticNamespace scopes the deterministic IDs of configured quotes.
var staticNamespace = uuid.MustParse("6f1c9a52-3d8e-4b7a-9c41-2e5d7f0a8b13")

func (b *Builder) buildStaticQuotes() ([]freight.QuoteCandidate, error) {
	out := make([]freight.QuoteCandidate, 0, len(b.config.Providers.Static))
	for i, q := range b.config.Providers.Static {
		source := freight.Source(q.Source)
		if source != freight.SourceLightAPI && source != freight.SourceHeavyTable {
			return nil, fmt.Errorf("%w: static[%d] has invalid source %q", domainconfig.ErrBuildFailed, i, q.Source)
		}
		out = append(out, freight.QuoteCandidate{
			ID:           uuid.NewSHA1(staticNamespace, []byte(fmt.Sprintf("%d|%s|%s", i, q.Carrier, q.Service))).String(),
			CarrierName:  q.Carrier,
			ServiceName:  q.Service,
			Price:        decimal.NewFromFloat(q.Price),
			DeliveryDays: q.DeliveryDays,
			Source:       source,
		})
	}
	return out, nil
}
