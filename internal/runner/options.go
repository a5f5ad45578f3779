package runner

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/torosent/flybench/internal/metrics"
)

// DefaultProgressEvery is how many completions pass between progress callbacks.
const DefaultProgressEvery = 100

// Executor abstracts executing a single measured request.
// Implementations must be safe for concurrent use and must not panic on
// request failures; failures are reported through the returned result.
type Executor interface {
	Execute(ctx context.Context) metrics.RequestResult
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context) metrics.RequestResult

func (f ExecutorFunc) Execute(ctx context.Context) metrics.RequestResult {
	return f(ctx)
}

// ProgressFunc receives the number of completed executions so far.
type ProgressFunc func(completed, total int)

// Options configure the Dispatcher.
type Options struct {
	Concurrency    int                         // number of worker goroutines
	TotalRequests  int                         // exact number of executions
	RatePerSecond  int                         // request start pacing (0 means unlimited)
	Executor       Executor                    // request executor (required)
	ProgressEvery  int                         // completions between OnProgress calls
	OnProgress     ProgressFunc                // optional progress notification
	OnResult       func(metrics.RequestResult) // optional per-result hook, called from one goroutine
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.TotalRequests < 0 {
		o.TotalRequests = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = DefaultProgressEvery
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}
