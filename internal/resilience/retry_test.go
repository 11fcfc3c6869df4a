package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(retryable bool) RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffFactor:   2.0,
		RetryableErrors: func(error) bool { return retryable },
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := RetryWithConfig(context.Background(), fastRetryConfig(true), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	boom := errors.New("bad request")

	err := RetryWithConfig(context.Background(), fastRetryConfig(false), func() error {
		attempts++
		return boom
	})

	assert.Equal(t, boom, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	attempts := 0
	err := RetryWithConfig(context.Background(), fastRetryConfig(true), func() error {
		attempts++
		return fmt.Errorf("attempt %d", attempts)
	})

	require.EqualError(t, err, "attempt 3")
	assert.Equal(t, 3, attempts)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithConfig(ctx, fastRetryConfig(true), func() error {
		t.Fatal("cancelled context must not run the function")
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateDelayBackoff(t *testing.T) {
	config := RetryConfig{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      300 * time.Millisecond,
		BackoffFactor: 2.0,
	}

	assert.Equal(t, 100*time.Millisecond, calculateDelay(config, 0))
	assert.Equal(t, 200*time.Millisecond, calculateDelay(config, 1))
	assert.Equal(t, 300*time.Millisecond, calculateDelay(config, 2))
	assert.Equal(t, 300*time.Millisecond, calculateDelay(config, 10))
}

func TestCalculateDelayJitterBounds(t *testing.T) {
	config := RetryConfig{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}

	// jitter adds up to 25% on top of the base delay
	for i := 0; i < 50; i++ {
		delay := calculateDelay(config, 1)
		assert.GreaterOrEqual(t, delay, 200*time.Millisecond)
		assert.LessOrEqual(t, delay, 250*time.Millisecond)
	}
}

func TestExecuteWithRetryRegistersBreaker(t *testing.T) {
	const service = "svc-register"

	require.NoError(t, ExecuteWithRetry(context.Background(), service, func() error { return nil }))
	assert.Equal(t, "closed", BreakerStates()[service])
}

func TestExecuteWithRetryOpensBreakerAfterRepeatedFailures(t *testing.T) {
	const service = "svc-flaky"
	boom := errors.New("boom")

	// the default breaker opens after five consecutive failures; "boom" is
	// not retryable, so each call is a single attempt
	for i := 0; i < 5; i++ {
		require.Error(t, ExecuteWithRetry(context.Background(), service, func() error { return boom }))
	}
	assert.Equal(t, "open", BreakerStates()[service])

	err := ExecuteWithRetry(context.Background(), service, func() error {
		t.Fatal("open breaker must not run the function")
		return nil
	})

	var cbErr *CircuitBreakerError
	require.True(t, errors.As(err, &cbErr))
}
