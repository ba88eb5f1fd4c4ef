// Package secrets resolves credentials that are kept out of configuration files.
package secrets

import (
	"context"
	"errors"
	"os"
	"sync"

	domainconfig "github.com/felixgeelhaar/freight-agent/domain/config"
)

// DefaultPrefix prefixes every environment variable read by EnvSource.
const DefaultPrefix = "FREIGHT_"

// Credential keys.
const (
	KeyLightProviderToken = "LIGHT_PROVIDER_TOKEN"
	KeyRedisPassword      = "REDIS_PASSWORD"
	KeyAuditDSN           = "AUDIT_DSN"
)

// ErrSecretNotFound is returned when a secret is not found.
var ErrSecretNotFound = errors.New("secret not found")

// Source is a read-only credential store.
type Source interface {
	// Get retrieves a secret by key.
	Get(ctx context.Context, key string) (string, error)
}

// EnvSource reads secrets from environment variables.
type EnvSource struct {
	prefix string
}

// EnvOption configures the environment source.
type EnvOption func(*EnvSource)

// WithPrefix sets the environment variable prefix.
func WithPrefix(prefix string) EnvOption {
	return func(s *EnvSource) {
		s.prefix = prefix
	}
}

// NewEnvSource creates an environment-backed source using DefaultPrefix.
func NewEnvSource(opts ...EnvOption) *EnvSource {
	s := &EnvSource{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value of prefix+key. Empty variables count as missing.
func (s *EnvSource) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	value := os.Getenv(s.prefix + key)
	if value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}

// MemorySource holds secrets in memory. Useful for testing.
type MemorySource struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemorySource creates a source seeded with secrets.
func NewMemorySource(secrets map[string]string) *MemorySource {
	m := &MemorySource{secrets: make(map[string]string, len(secrets))}
	for k, v := range secrets {
		m.secrets[k] = v
	}
	return m
}

// Get retrieves a secret from memory.
func (m *MemorySource) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.secrets[key]
	if !exists {
		return "", ErrSecretNotFound
	}
	return value, nil
}

// Set stores a secret.
func (m *MemorySource) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[key] = value
}

// Chain reads from sources in order until one has the key.
type Chain []Source

// Get retrieves a secret from the first source that has it.
func (c Chain) Get(ctx context.Context, key string) (string, error) {
	for _, source := range c {
		value, err := source.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, ErrSecretNotFound) {
			return "", err
		}
	}
	return "", ErrSecretNotFound
}

// Apply fills credentials left empty in cfg from the source.
// Values already present in the configuration win.
func Apply(ctx context.Context, src Source, cfg *domainconfig.AppConfig) error {
	targets := []struct {
		key   string
		field *string
	}{
		{KeyLightProviderToken, &cfg.Providers.Light.Token},
		{KeyRedisPassword, &cfg.Backend.Redis.Password},
		{KeyAuditDSN, &cfg.Audit.DSN},
	}

	for _, t := range targets {
		if *t.field != "" {
			continue
		}
		value, err := src.Get(ctx, t.key)
		if errors.Is(err, ErrSecretNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		*t.field = value
	}
	return nil
}

// Redacted returns a copy of cfg with every credential masked, for display.
func Redacted(cfg *domainconfig.AppConfig) *domainconfig.AppConfig {
	out := *cfg
	mask := func(s *string) {
		if *s != "" {
			*s = "[REDACTED]"
		}
	}
	mask(&out.Providers.Light.Token)
	mask(&out.Backend.Redis.Password)
	mask(&out.Audit.DSN)
	return &out
}
