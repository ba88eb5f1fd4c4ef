package resilience

import (
	"time"

	domainconfig "github.com/felixgeelhaar/freight-agent/domain/config"
)

// Option configures the executor.
type Option func(*ExecutorConfig)

// WithMaxConcurrent sets the maximum concurrent provider calls.
func WithMaxConcurrent(n int) Option {
	return func(c *ExecutorConfig) {
		c.MaxConcurrent = n
	}
}

// WithCircuitBreaker sets the breaker threshold and open duration.
func WithCircuitBreaker(threshold int, timeout time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.CircuitBreakerEnabled = true
		c.CircuitBreakerThreshold = threshold
		c.CircuitBreakerTimeout = timeout
	}
}

// WithoutCircuitBreaker disables the per-source breakers.
func WithoutCircuitBreaker() Option {
	return func(c *ExecutorConfig) {
		c.CircuitBreakerEnabled = false
	}
}

// WithRetry sets the attempt budget and initial backoff delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.RetryMaxAttempts = attempts
		c.RetryInitialDelay = delay
	}
}

// WithAttemptTimeout bounds each provider attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.AttemptTimeout = d
	}
}

// NewProviderExecutorWithOptions creates an executor with the given options.
func NewProviderExecutorWithOptions(opts ...Option) *ProviderExecutor {
	config := DefaultExecutorConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return NewProviderExecutor(config)
}

// ConfigFrom maps the freight section of the service configuration.
func ConfigFrom(cfg domainconfig.FreightConfig) ExecutorConfig {
	config := DefaultExecutorConfig()
	config.AttemptTimeout = cfg.ProviderTimeout.Duration()

	if cfg.Retry.Enabled {
		config.RetryMaxAttempts = cfg.Retry.MaxAttempts
		config.RetryInitialDelay = cfg.Retry.InitialDelay.Duration()
		config.RetryBackoffMultiplier = cfg.Retry.Multiplier
	} else {
		config.RetryMaxAttempts = 1
	}

	config.CircuitBreakerEnabled = cfg.CircuitBreaker.Enabled
	if cfg.CircuitBreaker.Enabled {
		config.CircuitBreakerThreshold = cfg.CircuitBreaker.Threshold
		config.CircuitBreakerTimeout = cfg.CircuitBreaker.Timeout.Duration()
	}
	return config
}
