package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type upstreamErr struct {
	status int
}

func (e *upstreamErr) Error() string {
	return fmt.Sprintf("upstream status %d", e.status)
}

func (e *upstreamErr) HTTPStatusCode() int {
	return e.status
}

func TestToAppErrorUpstreamStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		category  ErrorCategory
		retryable bool
	}{
		{
			name:      "server error is retryable",
			status:    http.StatusServiceUnavailable,
			category:  CategoryExternalAPI,
			retryable: true,
		},
		{
			name:      "rate limit is retryable",
			status:    http.StatusTooManyRequests,
			category:  CategoryRateLimit,
			retryable: true,
		},
		{
			name:      "client error is not retryable",
			status:    http.StatusForbidden,
			category:  CategoryInternal,
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &upstreamErr{status: tt.status}

			appErr := ToAppError(err)
			assert.Equal(t, tt.category, appErr.Category)
			assert.Equal(t, tt.retryable, IsRetryableError(err))
		})
	}
}

func TestToAppErrorWrappedUpstreamStatus(t *testing.T) {
	wrapped := fmt.Errorf("deal creation failed: %w", &upstreamErr{status: http.StatusBadGateway})

	assert.Equal(t, CategoryExternalAPI, ToAppError(wrapped).Category)
	assert.True(t, IsRetryableError(wrapped))
}

func TestToAppErrorContextErrors(t *testing.T) {
	assert.Equal(t, CategoryTimeout, ToAppError(context.DeadlineExceeded).Category)
	assert.Equal(t, CategoryTimeout, ToAppError(context.Canceled).Category)
}
