package runner

import (
	"context"
	"sync"

	"github.com/torosent/flybench/internal/metrics"
)

// Dispatcher runs a fixed number of executions with bounded concurrency.
type Dispatcher struct {
	opt Options
}

func New(opt Options) *Dispatcher {
	opt.normalize()
	return &Dispatcher{opt: opt}
}

// Workers returns the effective parallelism for the configured run.
func (d *Dispatcher) Workers() int {
	if d.opt.TotalRequests < d.opt.Concurrency {
		return d.opt.TotalRequests
	}
	return d.opt.Concurrency
}

// Run performs exactly TotalRequests executions and returns their results in
// completion order. It blocks until all of them have finished. The context is
// handed to every execution; it never shortens the run.
func (d *Dispatcher) Run(ctx context.Context) []metrics.RequestResult {
	total := d.opt.TotalRequests
	results := make([]metrics.RequestResult, 0, total)
	if total == 0 {
		return results
	}
	workers := d.Workers()

	limiter := d.opt.LimiterFactory(d.opt.RatePerSecond)
	permits := make(chan struct{})

	// Scheduler: one permit per request, paced in one place so workers cannot
	// burst past the configured rate.
	go func() {
		defer close(permits)
		for i := 0; i < total; i++ {
			if d.opt.RatePerSecond > 0 && limiter != nil {
				// A done context only skips pacing.
				_ = limiter.Wait(ctx)
			}
			permits <- struct{}{}
		}
	}()

	out := make(chan metrics.RequestResult, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for range permits {
				out <- d.execute(ctx)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	completed := 0
	for r := range out {
		results = append(results, r)
		completed++
		if d.opt.OnResult != nil {
			d.opt.OnResult(r)
		}
		if d.opt.OnProgress != nil && completed%d.opt.ProgressEvery == 0 {
			d.opt.OnProgress(completed, total)
		}
	}
	return results
}

func (d *Dispatcher) execute(ctx context.Context) metrics.RequestResult {
	if d.opt.Executor == nil {
		return metrics.RequestResult{Error: "executor is not configured", ErrorKind: "Configuration"}
	}
	return d.opt.Executor.Execute(ctx)
}
