package config

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/freight-agent/domain/freight"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the JSON path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates service configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *AppConfig) ValidationErrors {
	v.errors = nil

	v.validateProfile(config)
	v.validateLogging(config)
	v.validateSession(config)
	v.validateBackend(config)
	v.validateConversation(config)
	v.validateFreight(config)
	v.validateProviders(config)
	v.validateAudit(config)
	v.validateTelemetry(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateProfile(config *AppConfig) {
	switch config.Profile {
	case ProfileDevelopment, ProfileProduction, ProfileTest:
	case "":
		v.addError("profile", "profile is required")
	default:
		v.addError("profile", fmt.Sprintf("invalid profile: %s", config.Profile))
	}
}

func (v *Validator) validateLogging(config *AppConfig) {
	if config.Logging.Level != "" {
		validLevels := map[string]bool{
			"debug": true, "info": true, "warn": true, "error": true,
		}
		if !validLevels[strings.ToLower(config.Logging.Level)] {
			v.addError("logging.level", fmt.Sprintf("invalid level: %s", config.Logging.Level))
		}
	}
	if config.Logging.Format != "" && config.Logging.Format != "json" && config.Logging.Format != "console" {
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", config.Logging.Format))
	}
}

func (v *Validator) validateSession(config *AppConfig) {
	if config.Session.TTL.Duration() <= 0 {
		v.addError("session.ttl", "ttl must be positive")
	}
	if config.Session.SweepInterval.Duration() < 0 {
		v.addError("session.sweep_interval", "sweep_interval must be non-negative")
	}
}

func (v *Validator) validateBackend(config *AppConfig) {
	switch config.Backend.Type {
	case "redis":
		if config.Backend.Redis.Addr == "" {
			v.addError("backend.redis.addr", "addr is required for redis backend")
		}
		if config.Backend.Redis.DB < 0 {
			v.addError("backend.redis.db", "db must be non-negative")
		}
	case "badger":
		if !config.Backend.Badger.InMemory && config.Backend.Badger.Path == "" {
			v.addError("backend.badger.path", "path is required unless in_memory is set")
		}
	case "memory":
		if config.Profile.IsProduction() {
			v.addError("backend.type", "memory backend is not allowed in production")
		}
	default:
		v.addError("backend.type", fmt.Sprintf("unknown backend type: %s", config.Backend.Type))
	}
}

func (v *Validator) validateConversation(config *AppConfig) {
	if config.Conversation.DefaultUnitWeight <= 0 {
		v.addError("conversation.default_unit_weight", "default_unit_weight must be positive")
	}
	if config.Conversation.MaxQuantity <= 0 {
		v.addError("conversation.max_quantity", "max_quantity must be positive")
	}
	if config.Conversation.MaxErrors < 0 {
		v.addError("conversation.max_errors", "max_errors must be non-negative")
	}
}

func (v *Validator) validateFreight(config *AppConfig) {
	f := config.Freight
	if f.LightThreshold <= 0 {
		v.addError("freight.light_threshold", "light_threshold must be positive")
	}
	if f.HeavyThreshold < f.LightThreshold {
		v.addError("freight.heavy_threshold", "heavy_threshold must be >= light_threshold")
	}
	if f.TopN <= 0 {
		v.addError("freight.top_n", "top_n must be positive")
	}
	if f.CacheTTL.Duration() < 0 {
		v.addError("freight.cache_ttl", "cache_ttl must be non-negative")
	}
	if f.Weights.Price < 0 || f.Weights.Time < 0 || f.Weights.Margin < 0 {
		v.addError("freight.weights", "weights must be non-negative")
	}
	if f.Economics != nil {
		e := f.Economics
		if e.ProductCost < 0 || e.SellingPrice < 0 || e.OperationalCost < 0 {
			v.addError("freight.economics", "economic values must be non-negative")
		}
	}
	if f.ProviderTimeout.Duration() <= 0 {
		v.addError("freight.provider_timeout", "provider_timeout must be positive")
	}

	if f.Retry.Enabled {
		if f.Retry.MaxAttempts <= 0 {
			v.addError("freight.retry.max_attempts", "max_attempts must be positive when enabled")
		}
		if f.Retry.Multiplier < 1 {
			v.addError("freight.retry.multiplier", "multiplier must be >= 1")
		}
	}

	if f.CircuitBreaker.Enabled {
		if f.CircuitBreaker.Threshold <= 0 {
			v.addError("freight.circuit_breaker.threshold", "threshold must be positive when enabled")
		}
	}
}

func (v *Validator) validateProviders(config *AppConfig) {
	p := config.Providers
	if p.Light.URL == "" && p.HeavyTable.Path == "" && len(p.Static) == 0 {
		v.addError("providers", "at least one provider must be configured")
	}
	if p.Light.URL != "" && !strings.HasPrefix(p.Light.URL, "http://") && !strings.HasPrefix(p.Light.URL, "https://") {
		v.addError("providers.light.url", "url must be http or https")
	}

	for i, q := range p.Static {
		path := fmt.Sprintf("providers.static[%d]", i)
		if q.Carrier == "" {
			v.addError(path+".carrier", "carrier is required")
		}
		if q.Price < 0 {
			v.addError(path+".price", "price must be non-negative")
		}
		if q.DeliveryDays <= 0 {
			v.addError(path+".delivery_days", "delivery_days must be positive")
		}
		if src := freight.Source(q.Source); src != freight.SourceLightAPI && src != freight.SourceHeavyTable {
			v.addError(path+".source", fmt.Sprintf("invalid source: %s", q.Source))
		}
	}
}

func (v *Validator) validateAudit(config *AppConfig) {
	switch config.Audit.Type {
	case "sqlite", "postgres":
		if config.Audit.DSN == "" {
			v.addError("audit.dsn", fmt.Sprintf("dsn is required for %s audit", config.Audit.Type))
		}
	case "memory", "none", "":
	default:
		v.addError("audit.type", fmt.Sprintf("unknown audit type: %s", config.Audit.Type))
	}
}

func (v *Validator) validateTelemetry(config *AppConfig) {
	tr := config.Telemetry.Tracing
	switch tr.Exporter {
	case "", "noop", "stdout":
	case "otlp":
		if tr.Endpoint == "" {
			v.addError("telemetry.tracing.endpoint", "endpoint is required for otlp exporter")
		}
	default:
		v.addError("telemetry.tracing.exporter", fmt.Sprintf("unknown exporter: %s", tr.Exporter))
	}
	if tr.SampleRate < 0 || tr.SampleRate > 1 {
		v.addError("telemetry.tracing.sample_rate", "sample_rate must be between 0 and 1")
	}
}
