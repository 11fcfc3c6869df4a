package resilience

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/momentum-leads/momentum-codex/internal/errors"
)

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	MaxAttempts     int              `json:"max_attempts"`
	InitialDelay    time.Duration    `json:"initial_delay"`
	MaxDelay        time.Duration    `json:"max_delay"`
	BackoffFactor   float64          `json:"backoff_factor"`
	JitterEnabled   bool             `json:"jitter_enabled"`
	RetryableErrors func(error) bool `json:"-"`
}

// DefaultRetryConfig returns sensible defaults for retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
		RetryableErrors: func(err error) bool {
			return errors.IsRetryableError(err)
		},
	}
}

// RetryableFunc represents a function that can be retried
type RetryableFunc func() error

// RetryWithConfig executes a function with retry logic using custom configuration
func RetryWithConfig(ctx context.Context, config RetryConfig, fn RetryableFunc) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !config.RetryableErrors(err) {
			break
		}

		if attempt == config.MaxAttempts-1 {
			break
		}

		delay := calculateDelay(config, attempt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// Retry executes a function with retry logic using default configuration
func Retry(ctx context.Context, fn RetryableFunc) error {
	return RetryWithConfig(ctx, DefaultRetryConfig(), fn)
}

func calculateDelay(config RetryConfig, attempt int) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	if config.JitterEnabled {
		// up to 25% jitter so concurrent retries don't stampede
		delay += delay * 0.25 * rand.Float64()
	}

	return time.Duration(delay)
}

// serviceBreakers tracks one circuit breaker per named external API.
var (
	serviceBreakersMu sync.Mutex
	serviceBreakers   = make(map[string]*CircuitBreaker)
)

func breakerFor(service string) *CircuitBreaker {
	serviceBreakersMu.Lock()
	defer serviceBreakersMu.Unlock()

	cb, ok := serviceBreakers[service]
	if !ok {
		cb = NewCircuitBreaker(CircuitBreakerConfig{})
		serviceBreakers[service] = cb
	}
	return cb
}

// ExecuteWithRetry runs fn behind the named service's circuit breaker with
// default retry behavior.
func ExecuteWithRetry(ctx context.Context, service string, fn RetryableFunc) error {
	return Retry(ctx, func() error {
		return breakerFor(service).Call(fn)
	})
}

// BreakerStates returns the current state of every registered circuit breaker.
func BreakerStates() map[string]string {
	serviceBreakersMu.Lock()
	defer serviceBreakersMu.Unlock()

	states := make(map[string]string, len(serviceBreakers))
	for service, cb := range serviceBreakers {
		states[service] = cb.State().String()
	}
	return states
}
