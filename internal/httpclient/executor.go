package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/flybench/internal/metrics"
	"github.com/torosent/flybench/internal/tracing"
)

const (
	DefaultTimeout     = 10 * time.Second
	maxLoggedBodyBytes = 256
)

// Executor issues measured GET requests against a single target.
// It is safe for concurrent use.
type Executor struct {
	client    *http.Client
	target    string
	timeout   time.Duration
	policy    RetryPolicy
	tracer    trace.Tracer
	propagate bool
}

// Option is a functional option for configuring an Executor.
type Option func(*Executor) error

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		e.timeout = d
		return nil
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Executor) error {
		if p.BackoffFactor < 0 {
			return fmt.Errorf("backoff factor must be >= 0, got %v", p.BackoffFactor)
		}
		e.policy = p
		return nil
	}
}

// WithTracing records a client span per call and optionally injects W3C trace
// headers into outgoing requests.
func WithTracing(p *tracing.Provider) Option {
	return func(e *Executor) error {
		e.tracer = p.Tracer()
		e.propagate = p.ShouldPropagate()
		return nil
	}
}

// NewExecutor creates an Executor for target using the shared client.
func NewExecutor(client *http.Client, target string, opts ...Option) (*Executor, error) {
	if client == nil {
		return nil, errors.New("httpclient: client is required")
	}
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return nil, fmt.Errorf("httpclient: invalid target: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("httpclient: unsupported target scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("httpclient: target %q has no host", target)
	}

	e := &Executor{
		client:  client,
		target:  u.String(),
		timeout: DefaultTimeout,
		policy:  DefaultRetryPolicy(),
		tracer:  noop.NewTracerProvider().Tracer("flybench"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("httpclient: %w", err)
		}
	}
	return e, nil
}

// Execute performs one request, retrying transient statuses, and reports the
// final outcome. The measured time spans every attempt and backoff delay.
func (e *Executor) Execute(ctx context.Context) metrics.RequestResult {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := tracing.StartRequestSpan(ctx, e.tracer, "GET", e.target)

	start := time.Now()
	out, attempts, err := e.do(ctx)
	elapsed := time.Since(start)

	result := metrics.RequestResult{
		StatusCode:     out.status,
		ResponseTimeMs: float64(elapsed) / float64(time.Millisecond),
		ContentLength:  out.bytes,
		Success:        metrics.IsSuccessStatus(out.status),
	}

	var spanErr error
	switch {
	case err != nil:
		result.StatusCode = 0
		result.ContentLength = 0
		result.Success = false
		result.Error = err.Error()
		result.ErrorKind = metrics.ClassifyError(err)
		spanErr = err
	case !result.Success:
		statusErr := &StatusError{StatusCode: out.status, Body: out.snippet}
		result.Error = statusErr.Error()
		result.ErrorKind = "HTTP " + strconv.Itoa(out.status)
		spanErr = statusErr
	}

	tracing.EndSpan(span, spanErr,
		attribute.Int("http.response.status_code", result.StatusCode),
		attribute.Int("flybench.attempts", attempts),
		attribute.Int64("http.response.body.size", result.ContentLength),
	)
	return result
}

type attemptOutcome struct {
	status  int
	bytes   int64
	snippet string
}

func (e *Executor) do(ctx context.Context) (attemptOutcome, int, error) {
	maxAttempts := e.policy.attempts()
	for attempt := 1; ; attempt++ {
		out, err := e.attempt(ctx)
		if err != nil {
			return attemptOutcome{}, attempt, err
		}
		if attempt >= maxAttempts || !e.policy.ShouldRetry(out.status) {
			return out, attempt, nil
		}
		if err := sleepContext(ctx, e.policy.Delay(attempt)); err != nil {
			// Out of time to back off; the last response is final.
			return out, attempt, nil
		}
	}
}

func (e *Executor) attempt(ctx context.Context) (attemptOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.target, nil)
	if err != nil {
		return attemptOutcome{}, err
	}
	if e.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return attemptOutcome{}, err
	}
	defer resp.Body.Close()

	out := attemptOutcome{status: resp.StatusCode}
	if metrics.IsSuccessStatus(resp.StatusCode) {
		out.bytes, err = io.Copy(io.Discard, resp.Body)
	} else {
		var snippet []byte
		snippet, err = io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyBytes))
		if err == nil {
			var rest int64
			rest, err = io.Copy(io.Discard, resp.Body)
			out.bytes = int64(len(snippet)) + rest
			out.snippet = strings.TrimSpace(string(snippet))
		}
	}
	if err != nil {
		return attemptOutcome{}, fmt.Errorf("read body: %w", err)
	}
	return out, nil
}
