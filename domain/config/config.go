// Package config provides domain models for freight-agent configuration.
package config

import "time"

// Profile selects environment-dependent behavior.
type Profile string

// Profile values.
const (
	ProfileDevelopment Profile = "development"
	ProfileProduction  Profile = "production"
	ProfileTest        Profile = "test"
)

// IsProduction returns true for the production profile.
func (p Profile) IsProduction() bool {
	return p == ProfileProduction
}

// AppConfig represents the complete service configuration.
type AppConfig struct {
	// Profile is the deployment profile (development, production, test).
	Profile Profile `json:"profile" yaml:"profile"`
	// Logging configures the structured logger.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	// Session configures conversation session storage.
	Session SessionConfig `json:"session,omitempty" yaml:"session,omitempty"`
	// Backend selects the key-value backend for sessions and the quote cache.
	Backend BackendConfig `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Conversation configures the conversation state machine.
	Conversation ConversationConfig `json:"conversation,omitempty" yaml:"conversation,omitempty"`
	// Freight configures the decision and ranking engine.
	Freight FreightConfig `json:"freight,omitempty" yaml:"freight,omitempty"`
	// Providers configures the quote providers.
	Providers ProvidersConfig `json:"providers,omitempty" yaml:"providers,omitempty"`
	// Audit configures the simulation audit sink.
	Audit AuditConfig `json:"audit,omitempty" yaml:"audit,omitempty"`
	// Telemetry configures metrics.
	Telemetry TelemetryConfig `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is the minimum level (debug, info, warn, error).
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is the output format (json, console).
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// SessionConfig configures session lifetime.
type SessionConfig struct {
	// TTL is the idle lifetime of a session.
	TTL Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	// SweepInterval is how often the in-process fallback evicts expired entries.
	SweepInterval Duration `json:"sweep_interval,omitempty" yaml:"sweep_interval,omitempty"`
}

// BackendConfig selects and configures the key-value backend.
type BackendConfig struct {
	// Type is the backend type (redis, badger, memory).
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	// Redis configures the redis backend.
	Redis RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
	// Badger configures the embedded badger backend.
	Badger BadgerConfig `json:"badger,omitempty" yaml:"badger,omitempty"`
}

// RedisConfig configures a redis connection.
type RedisConfig struct {
	Addr         string   `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password     string   `json:"password,omitempty" yaml:"password,omitempty"`
	DB           int      `json:"db,omitempty" yaml:"db,omitempty"`
	KeyPrefix    string   `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
	PoolSize     int      `json:"pool_size,omitempty" yaml:"pool_size,omitempty"`
	DialTimeout  Duration `json:"dial_timeout,omitempty" yaml:"dial_timeout,omitempty"`
	ReadTimeout  Duration `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`
	WriteTimeout Duration `json:"write_timeout,omitempty" yaml:"write_timeout,omitempty"`
}

// BadgerConfig configures the embedded badger store.
type BadgerConfig struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// InMemory keeps all data in memory.
	InMemory bool `json:"in_memory,omitempty" yaml:"in_memory,omitempty"`
	// SyncWrites fsyncs every write.
	SyncWrites bool `json:"sync_writes,omitempty" yaml:"sync_writes,omitempty"`
	// GCInterval runs value log GC periodically when positive.
	GCInterval Duration `json:"gc_interval,omitempty" yaml:"gc_interval,omitempty"`
}

// ConversationConfig configures the conversation flow.
type ConversationConfig struct {
	// DefaultUnitWeight is the per-unit weight in kg.
	DefaultUnitWeight float64 `json:"default_unit_weight,omitempty" yaml:"default_unit_weight,omitempty"`
	// MaxQuantity is the upper bound accepted for a quantity.
	MaxQuantity int `json:"max_quantity,omitempty" yaml:"max_quantity,omitempty"`
	// MaxErrors is the number of invalid answers tolerated before failing.
	MaxErrors int `json:"max_errors,omitempty" yaml:"max_errors,omitempty"`
}

// FreightConfig configures quote selection and ranking.
type FreightConfig struct {
	LightThreshold  float64          `json:"light_threshold,omitempty" yaml:"light_threshold,omitempty"`
	HeavyThreshold  float64          `json:"heavy_threshold,omitempty" yaml:"heavy_threshold,omitempty"`
	TopN            int              `json:"top_n,omitempty" yaml:"top_n,omitempty"`
	CacheTTL        Duration         `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty"`
	Weights         WeightsConfig    `json:"weights,omitempty" yaml:"weights,omitempty"`
	Economics       *EconomicsConfig `json:"economics,omitempty" yaml:"economics,omitempty"`
	ProviderTimeout Duration         `json:"provider_timeout,omitempty" yaml:"provider_timeout,omitempty"`
	Retry           RetryConfig      `json:"retry,omitempty" yaml:"retry,omitempty"`
	// CircuitBreaker guards each provider independently.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
}

// WeightsConfig holds ranking weights. All zero means defaults.
type WeightsConfig struct {
	Price  float64 `json:"price" yaml:"price"`
	Time   float64 `json:"time" yaml:"time"`
	Margin float64 `json:"margin" yaml:"margin"`
}

// EconomicsConfig holds the economic context used for margin ranking.
type EconomicsConfig struct {
	ProductCost     float64 `json:"product_cost" yaml:"product_cost"`
	SellingPrice    float64 `json:"selling_price" yaml:"selling_price"`
	OperationalCost float64 `json:"operational_cost" yaml:"operational_cost"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// Enabled enables retry.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// MaxAttempts is the maximum retry attempts.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// InitialDelay is the first retry delay.
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	// MaxDelay is the maximum delay between retries.
	MaxDelay Duration `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
	// Multiplier is the backoff multiplier.
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Enabled enables circuit breaker.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Threshold is consecutive failures before opening.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// Timeout is how long the circuit stays open.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ProvidersConfig configures the quote sources.
type ProvidersConfig struct {
	// Light is the parcel HTTP quote API.
	Light LightProviderConfig `json:"light,omitempty" yaml:"light,omitempty"`
	// HeavyTable is the freight rate table.
	HeavyTable HeavyTableConfig `json:"heavy_table,omitempty" yaml:"heavy_table,omitempty"`
	// Static lists fixed quotes, used in development and tests.
	Static []StaticQuoteConfig `json:"static,omitempty" yaml:"static,omitempty"`
}

// LightProviderConfig configures the parcel HTTP quote API.
type LightProviderConfig struct {
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
	// OriginPostalCode is the shipper's postal code.
	OriginPostalCode string `json:"origin_postal_code,omitempty" yaml:"origin_postal_code,omitempty"`
}

// HeavyTableConfig points at a YAML rate table.
type HeavyTableConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// StaticQuoteConfig is one fixed quote.
type StaticQuoteConfig struct {
	Carrier      string  `json:"carrier" yaml:"carrier"`
	Service      string  `json:"service" yaml:"service"`
	Price        float64 `json:"price" yaml:"price"`
	DeliveryDays int     `json:"delivery_days" yaml:"delivery_days"`
	// Source is light_api or heavy_table.
	Source string `json:"source" yaml:"source"`
}

// AuditConfig configures where simulations are recorded.
type AuditConfig struct {
	// Type is the sink type (sqlite, postgres, memory, none).
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	// DSN is the database path or connection string.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// Table is the table name (default: freight_simulations).
	Table string `json:"table,omitempty" yaml:"table,omitempty"`
}

// TelemetryConfig configures metrics and tracing.
type TelemetryConfig struct {
	Enabled   bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	MeterName string `json:"meter_name,omitempty" yaml:"meter_name,omitempty"`
	// Tracing configures span export.
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Exporter is the span exporter (noop, stdout, otlp).
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	// Endpoint is the OTLP gRPC endpoint (e.g., "localhost:4317").
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Insecure disables TLS for the OTLP connection.
	Insecure bool `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	// SampleRate is the sampling ratio between 0 and 1.
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// DefaultAppConfig returns the configuration used when a field is not set.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Profile: ProfileDevelopment,
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Session: SessionConfig{
			TTL:           Duration(30 * time.Minute),
			SweepInterval: Duration(time.Minute),
		},
		Backend: BackendConfig{
			Type: "memory",
			Redis: RedisConfig{
				Addr:         "localhost:6379",
				PoolSize:     10,
				DialTimeout:  Duration(5 * time.Second),
				ReadTimeout:  Duration(3 * time.Second),
				WriteTimeout: Duration(3 * time.Second),
			},
		},
		Conversation: ConversationConfig{
			DefaultUnitWeight: 0.3,
			MaxQuantity:       9999,
			MaxErrors:         3,
		},
		Freight: FreightConfig{
			LightThreshold:  10,
			HeavyThreshold:  15,
			TopN:            5,
			CacheTTL:        Duration(10 * time.Minute),
			Weights:         WeightsConfig{Price: 0.6, Time: 0.4},
			ProviderTimeout: Duration(5 * time.Second),
			Retry: RetryConfig{
				Enabled:      true,
				MaxAttempts:  3,
				InitialDelay: Duration(200 * time.Millisecond),
				MaxDelay:     Duration(2 * time.Second),
				Multiplier:   2,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:   true,
				Threshold: 5,
				Timeout:   Duration(30 * time.Second),
			},
		},
		Audit: AuditConfig{Type: "memory", Table: "freight_simulations"},
		Telemetry: TelemetryConfig{
			Enabled:   true,
			MeterName: "freight-agent",
			Tracing:   TracingConfig{Exporter: "noop", SampleRate: 1.0},
		},
	}
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
