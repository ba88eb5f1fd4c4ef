// Package resilience wraps quote provider calls with fortify timeout, retry,
// circuit breaker and bulkhead patterns.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/freight-agent/domain/freight"
)

type quotes = []freight.QuoteCandidate

// ProviderExecutor runs provider calls with resilience patterns applied.
// Each provider source gets its own circuit breaker.
type ProviderExecutor struct {
	config   ExecutorConfig
	bulkhead bulkhead.Bulkhead[quotes]
	retry    retry.Retry[quotes]

	mu       sync.RWMutex
	breakers map[freight.Source]circuitbreaker.CircuitBreaker[quotes]
}

// ExecutorConfig configures the provider executor.
type ExecutorConfig struct {
	// MaxConcurrent limits concurrent provider calls across all sources.
	MaxConcurrent int

	// CircuitBreakerEnabled enables the per-source breakers.
	CircuitBreakerEnabled bool

	// CircuitBreakerThreshold is the number of consecutive failures before opening.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long the circuit stays open.
	CircuitBreakerTimeout time.Duration

	// RetryMaxAttempts is the maximum number of attempts per call.
	RetryMaxAttempts int

	// RetryInitialDelay is the initial delay between retries.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64

	// AttemptTimeout bounds each individual attempt.
	AttemptTimeout time.Duration
}

// DefaultExecutorConfig returns the default provider call policy.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent:           16,
		CircuitBreakerEnabled:   true,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		RetryMaxAttempts:        3,
		RetryInitialDelay:       200 * time.Millisecond,
		RetryBackoffMultiplier:  2.0,
		AttemptTimeout:          5 * time.Second,
	}
}

// NewProviderExecutor creates a new executor.
func NewProviderExecutor(config ExecutorConfig) *ProviderExecutor {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 16
	}
	if config.CircuitBreakerThreshold <= 0 {
		config.CircuitBreakerThreshold = 5
	}
	if config.CircuitBreakerTimeout <= 0 {
		config.CircuitBreakerTimeout = 30 * time.Second
	}
	if config.RetryMaxAttempts <= 0 {
		config.RetryMaxAttempts = 1
	}
	if config.RetryBackoffMultiplier < 1 {
		config.RetryBackoffMultiplier = 2.0
	}
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = 5 * time.Second
	}

	return &ProviderExecutor{
		config: config,
		bulkhead: bulkhead.New[quotes](bulkhead.Config{
			MaxConcurrent: config.MaxConcurrent,
		}),
		retry: retry.New[quotes](retry.Config{
			MaxAttempts:   config.RetryMaxAttempts,
			InitialDelay:  config.RetryInitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    config.RetryBackoffMultiplier,
			// 4xx-class rejections will fail the same way again
			NonRetryableErrors: []error{freight.ErrProviderRejected},
		}),
		breakers: make(map[freight.Source]circuitbreaker.CircuitBreaker[quotes]),
	}
}

// NewDefaultProviderExecutor creates an executor with default configuration.
func NewDefaultProviderExecutor() *ProviderExecutor {
	return NewProviderExecutor(DefaultExecutorConfig())
}

// Quote calls p with the configured policy.
// Composition order: Bulkhead → Circuit Breaker → Retry → per-attempt Timeout.
func (e *ProviderExecutor) Quote(ctx context.Context, p freight.Provider, req freight.QuoteRequest) ([]freight.QuoteCandidate, error) {
	return e.bulkhead.Execute(ctx, func(ctx context.Context) (quotes, error) {
		call := func(ctx context.Context) (quotes, error) {
			return e.retry.Do(ctx, func(ctx context.Context) (quotes, error) {
				return e.attempt(ctx, p, req)
			})
		}
		if !e.config.CircuitBreakerEnabled {
			return call(ctx)
		}
		return e.breaker(p.Source()).Execute(ctx, call)
	})
}

func (e *ProviderExecutor) attempt(ctx context.Context, p freight.Provider, req freight.QuoteRequest) (quotes, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.config.AttemptTimeout)
	defer cancel()

	out, err := p.Quote(attemptCtx, req)
	if err == nil {
		return out, nil
	}
	// An expired attempt is retryable as long as the caller is still waiting.
	if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, freight.ErrProviderUnavailable) {
		return nil, fmt.Errorf("%w: %s timed out after %s", freight.ErrProviderUnavailable, p.Source(), e.config.AttemptTimeout)
	}
	return nil, err
}

// breaker returns the circuit breaker for a source, creating one if needed.
func (e *ProviderExecutor) breaker(source freight.Source) circuitbreaker.CircuitBreaker[quotes] {
	e.mu.RLock()
	cb, exists := e.breakers[source]
	e.mu.RUnlock()

	if exists {
		return cb
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, exists = e.breakers[source]; exists {
		return cb
	}

	threshold := e.config.CircuitBreakerThreshold
	cb = circuitbreaker.New[quotes](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    e.config.CircuitBreakerTimeout,
		Timeout:     e.config.CircuitBreakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- threshold is positive
		},
	})
	e.breakers[source] = cb

	return cb
}

// BreakerState returns the circuit breaker state for a source.
func (e *ProviderExecutor) BreakerState(source freight.Source) string {
	e.mu.RLock()
	cb, exists := e.breakers[source]
	e.mu.RUnlock()

	if !exists {
		return "unknown"
	}
	return cb.State().String()
}
