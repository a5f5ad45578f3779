package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	DefaultMaxAttempts   = 3
	DefaultBackoffFactor = 100 * time.Millisecond
	// MaxBackoff caps the wait between attempts.
	MaxBackoff = 120 * time.Second
)

// StatusError describes a final non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// RetryPolicy configures retry behavior for transient status codes.
type RetryPolicy struct {
	MaxAttempts   int           // total attempts including initial try
	BackoffFactor time.Duration // delay before retry n is BackoffFactor * 2^(n-1), at most MaxBackoff
	Statuses      []int         // status codes that trigger a retry
}

// DefaultRetryPolicy retries 429 and gateway/server errors twice.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   DefaultMaxAttempts,
		BackoffFactor: DefaultBackoffFactor,
		Statuses: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// ShouldRetry reports whether a response with the given status is retried.
func (p RetryPolicy) ShouldRetry(status int) bool {
	for _, s := range p.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Delay returns the wait after the given failed attempt (1-based), capped at
// MaxBackoff.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.BackoffFactor <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	d := p.BackoffFactor
	for i := 1; i < attempt; i++ {
		if d >= MaxBackoff/2 {
			return MaxBackoff
		}
		d *= 2
	}
	return min(d, MaxBackoff)
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
