package config

import (
	"encoding/json"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	ID                   string                 `json:"$id,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	AdditionalProperties *JSONSchema            `json:"additionalProperties,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	Maximum              *float64               `json:"maximum,omitempty"`
	MinLength            *int                   `json:"minLength,omitempty"`
	MaxLength            *int                   `json:"maxLength,omitempty"`
	Pattern              string                 `json:"pattern,omitempty"`
	Format               string                 `json:"format,omitempty"`
	Ref                  string                 `json:"$ref,omitempty"`
	Definitions          map[string]*JSONSchema `json:"$defs,omitempty"`
	OneOf                []*JSONSchema          `json:"oneOf,omitempty"`
	AnyOf                []*JSONSchema          `json:"anyOf,omitempty"`
	AllOf                []*JSONSchema          `json:"allOf,omitempty"`
}

// GenerateSchema generates a JSON Schema for the AppConfig.
func GenerateSchema() *JSONSchema {
	return &JSONSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		ID:          "https://github.com/felixgeelhaar/freight-agent/freight-config.schema.json",
		Title:       "Freight Agent Configuration",
		Description: "Configuration schema for the freight quoting assistant",
		Type:        "object",
		Required:    []string{"profile"},
		Properties: map[string]*JSONSchema{
			"profile": {
				Type:        "string",
				Description: "Deployment profile; production forbids the in-process session fallback",
				Enum:        []string{"development", "production", "test"},
				Default:     "development",
			},
			"logging":      generateLoggingSchema(),
			"session":      generateSessionSchema(),
			"backend":      generateBackendSchema(),
			"conversation": generateConversationSchema(),
			"freight":      generateFreightSchema(),
			"providers":    generateProvidersSchema(),
			"audit":        generateAuditSchema(),
			"telemetry": {
				Type:        "object",
				Description: "Metrics settings",
				Properties: map[string]*JSONSchema{
					"enabled":    {Type: "boolean", Default: true},
					"meter_name": {Type: "string", Default: "freight-agent"},
					"tracing": {
						Type:        "object",
						Description: "Span export",
						Properties: map[string]*JSONSchema{
							"exporter":    {Type: "string", Enum: []string{"noop", "stdout", "otlp"}, Default: "noop"},
							"endpoint":    {Type: "string", Description: "OTLP gRPC endpoint"},
							"insecure":    {Type: "boolean", Default: false},
							"sample_rate": {Type: "number", Minimum: floatPtr(0), Maximum: floatPtr(1), Default: 1.0},
						},
					},
				},
			},
		},
	}
}

func durationSchema(description, def string) *JSONSchema {
	s := &JSONSchema{
		Type:        "string",
		Description: description,
		Format:      "duration",
	}
	if def != "" {
		s.Default = def
	}
	return s
}

func generateLoggingSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Structured logging",
		Properties: map[string]*JSONSchema{
			"level": {
				Type:    "string",
				Enum:    []string{"debug", "info", "warn", "error"},
				Default: "info",
			},
			"format": {
				Type:    "string",
				Enum:    []string{"json", "console"},
				Default: "console",
			},
		},
	}
}

func generateSessionSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Conversation session lifetime",
		Properties: map[string]*JSONSchema{
			"ttl":            durationSchema("Idle lifetime of a session", "30m"),
			"sweep_interval": durationSchema("Eviction interval of the in-process fallback", "1m"),
		},
	}
}

func generateBackendSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Key-value backend for sessions and the quote cache",
		Properties: map[string]*JSONSchema{
			"type": {
				Type:    "string",
				Enum:    []string{"redis", "badger", "memory"},
				Default: "memory",
			},
			"redis": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"addr":          {Type: "string", Default: "localhost:6379"},
					"password":      {Type: "string"},
					"db":            {Type: "integer", Minimum: floatPtr(0)},
					"key_prefix":    {Type: "string"},
					"pool_size":     {Type: "integer", Minimum: floatPtr(1), Default: 10},
					"dial_timeout":  durationSchema("", "5s"),
					"read_timeout":  durationSchema("", "3s"),
					"write_timeout": durationSchema("", "3s"),
				},
			},
			"badger": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"path":        {Type: "string", Description: "Data directory"},
					"in_memory":   {Type: "boolean", Default: false},
					"sync_writes": {Type: "boolean", Default: false},
					"gc_interval": durationSchema("Value log GC interval", ""),
				},
			},
		},
	}
}

func generateConversationSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Conversation flow",
		Properties: map[string]*JSONSchema{
			"default_unit_weight": {
				Type:        "number",
				Description: "Per-unit weight in kg",
				Default:     0.3,
			},
			"max_quantity": {
				Type:    "integer",
				Minimum: floatPtr(1),
				Default: 9999,
			},
			"max_errors": {
				Type:        "integer",
				Description: "Invalid answers tolerated before the conversation fails",
				Minimum:     floatPtr(0),
				Default:     3,
			},
		},
	}
}

func generateFreightSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Quote selection and ranking",
		Properties: map[string]*JSONSchema{
			"light_threshold": {Type: "number", Description: "Max kg served by parcel carriers only", Default: 10},
			"heavy_threshold": {Type: "number", Description: "Max kg served by both sources", Default: 15},
			"top_n":           {Type: "integer", Minimum: floatPtr(1), Default: 5},
			"cache_ttl":       durationSchema("Quote cache lifetime", "10m"),
			"weights": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"price":  {Type: "number", Minimum: floatPtr(0), Default: 0.6},
					"time":   {Type: "number", Minimum: floatPtr(0), Default: 0.4},
					"margin": {Type: "number", Minimum: floatPtr(0), Default: 0},
				},
			},
			"economics": {
				Type:        "object",
				Description: "Economic context for margin ranking",
				Properties: map[string]*JSONSchema{
					"product_cost":     {Type: "number", Minimum: floatPtr(0)},
					"selling_price":    {Type: "number", Minimum: floatPtr(0)},
					"operational_cost": {Type: "number", Minimum: floatPtr(0)},
				},
			},
			"provider_timeout": durationSchema("Per-call provider timeout", "5s"),
			"retry": {
				Type:        "object",
				Description: "Retry behavior for retryable provider failures",
				Properties: map[string]*JSONSchema{
					"enabled":       {Type: "boolean", Default: true},
					"max_attempts":  {Type: "integer", Minimum: floatPtr(1), Default: 3},
					"initial_delay": durationSchema("", "200ms"),
					"max_delay":     durationSchema("", "2s"),
					"multiplier":    {Type: "number", Minimum: floatPtr(1), Default: 2.0},
				},
			},
			"circuit_breaker": {
				Type:        "object",
				Description: "Per-provider circuit breaker",
				Properties: map[string]*JSONSchema{
					"enabled":   {Type: "boolean", Default: true},
					"threshold": {Type: "integer", Description: "Consecutive failures before opening", Minimum: floatPtr(1), Default: 5},
					"timeout":   durationSchema("How long the circuit stays open", "30s"),
				},
			},
		},
	}
}

func generateProvidersSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Quote sources",
		Properties: map[string]*JSONSchema{
			"light": {
				Type:        "object",
				Description: "Parcel HTTP quote API",
				Properties: map[string]*JSONSchema{
					"url":                {Type: "string", Format: "uri"},
					"token":              {Type: "string"},
					"origin_postal_code": {Type: "string", Pattern: `^\d{5}-?\d{3}$`},
				},
			},
			"heavy_table": {
				Type:        "object",
				Description: "Freight rate table",
				Properties: map[string]*JSONSchema{
					"path": {Type: "string", Description: "YAML rate table path"},
				},
			},
			"static": {
				Type:        "array",
				Description: "Fixed quotes",
				Items: &JSONSchema{
					Type:     "object",
					Required: []string{"carrier", "price", "delivery_days", "source"},
					Properties: map[string]*JSONSchema{
						"carrier":       {Type: "string"},
						"service":       {Type: "string"},
						"price":         {Type: "number", Minimum: floatPtr(0)},
						"delivery_days": {Type: "integer", Minimum: floatPtr(1)},
						"source":        {Type: "string", Enum: []string{"light_api", "heavy_table"}},
					},
				},
			},
		},
	}
}

func generateAuditSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Simulation audit sink",
		Properties: map[string]*JSONSchema{
			"type": {
				Type:    "string",
				Enum:    []string{"sqlite", "postgres", "memory", "none"},
				Default: "memory",
			},
			"dsn":   {Type: "string", Description: "Database path or connection string"},
			"table": {Type: "string", Default: "freight_simulations"},
		},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}

// SchemaJSON returns the JSON Schema as a JSON string.
func SchemaJSON() (string, error) {
	data, err := json.MarshalIndent(GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
