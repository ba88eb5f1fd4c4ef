package config

import (
	"errors"
	"testing"
	"time"

	domainconfig "github.com/felixgeelhaar/freight-agent/domain/config"
	"github.com/felixgeelhaar/freight-agent/domain/freight"
)

func TestBuilder_Defaults(t *testing.T) {
	t.Parallel()

	result, err := NewBuilder(domainconfig.DefaultAppConfig()).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if result.Thresholds != freight.DefaultThresholds() {
		t.Errorf("Thresholds = %+v", result.Thresholds)
	}
	if result.Weights != freight.DefaultWeights() {
		t.Errorf("Weights = %+v", result.Weights)
	}
	if result.Economics != nil {
		t.Errorf("Economics = %+v, want nil", result.Economics)
	}
	if result.TopN != 5 || result.CacheTTL != 10*time.Minute {
		t.Errorf("TopN = %d, CacheTTL = %v", result.TopN, result.CacheTTL)
	}
	if result.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v", result.SessionTTL)
	}
	if result.Executor.AttemptTimeout != 5*time.Second {
		t.Errorf("Executor.AttemptTimeout = %v", result.Executor.AttemptTimeout)
	}
}

func TestBuilder_ZeroWeightsUseDefaults(t *testing.T) {
	t.Parallel()

	cfg := domainconfig.DefaultAppConfig()
	cfg.Freight.Weights = domainconfig.WeightsConfig{}

	result, err := NewBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if result.Weights != freight.DefaultWeights() {
		t.Errorf("Weights = %+v, want defaults", result.Weights)
	}
}

func TestBuilder_Economics(t *testing.T) {
	t.Parallel()

	cfg := domainconfig.DefaultAppConfig()
	cfg.Freight.Economics = &domainconfig.EconomicsConfig{ProductCost: 50, SellingPrice: 100, OperationalCost: 10}

	result, err := NewBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if result.Economics == nil || result.Economics.SellingPrice.String() != "100" {
		t.Errorf("Economics = %+v", result.Economics)
	}
}

func TestBuilder_StaticQuotes(t *testing.T) {
	t.Parallel()

	cfg := domainconfig.DefaultAppConfig()
	cfg.Providers.Static = []domainconfig.StaticQuoteConfig{
		{Carrier: "Correios", Service: "SEDEX", Price: 42.9, DeliveryDays: 2, Source: "light_api"},
		{Carrier: "Braspress", Service: "Rodoviario", Price: 180, DeliveryDays: 6, Source: "heavy_table"},
	}

	first, err := NewBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(first.StaticQuotes) != 2 {
		t.Fatalf("StaticQuotes = %d, want 2", len(first.StaticQuotes))
	}
	q := first.StaticQuotes[0]
	if q.CarrierName != "Correios" || q.Price.String() != "42.9" || q.Source != freight.SourceLightAPI {
		t.Errorf("StaticQuotes[0] = %+v", q)
	}

	second, _ := NewBuilder(cfg).Build()
	if second.StaticQuotes[0].ID != q.ID {
		t.Error("static quote IDs should be deterministic")
	}
	if first.StaticQuotes[1].ID == q.ID {
		t.Error("static quote IDs should be unique")
	}
}

func TestBuilder_Errors(t *testing.T) {
	t.Parallel()

	cfg := domainconfig.DefaultAppConfig()
	cfg.Freight.LightThreshold = 20
	if _, err := NewBuilder(cfg).Build(); !errors.Is(err, domainconfig.ErrBuildFailed) {
		t.Errorf("inverted thresholds error = %v", err)
	}

	cfg = domainconfig.DefaultAppConfig()
	cfg.Providers.Static = []domainconfig.StaticQuoteConfig{{Carrier: "X", Source: "carrier_pigeon"}}
	if _, err := NewBuilder(cfg).Build(); !errors.Is(err, domainconfig.ErrBuildFailed) {
		t.Errorf("invalid source error = %v", err)
	}
}
