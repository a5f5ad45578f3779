// Package runner drives a fixed number of request executions through a
// bounded pool of workers.
//
// # Basic Usage
//
// Create a dispatcher with options and an executor implementation:
//
//	d := runner.New(runner.Options{
//		Concurrency:   10,
//		TotalRequests: 1000,
//		Executor:      exec,
//		OnProgress: func(done, total int) {
//			fmt.Printf("  Completed: %d/%d\n", done, total)
//		},
//	})
//	results := d.Run(ctx)
//
// Run blocks until every one of the TotalRequests executions has completed and
// returns exactly that many results, in completion order.
//
// # Executor Interface
//
// The [Executor] interface defines what a worker runs:
//
//	type Executor interface {
//		Execute(ctx context.Context) metrics.RequestResult
//	}
//
// Executors never fail: transport errors are encoded in the returned result.
//
// # Pacing
//
// RatePerSecond optionally spaces out request starts with a token bucket
// limiter owned by the dispatcher's scheduler. Zero means no pacing.
//
// # Middleware
//
// [WithLogging] reports failed results to a [FailureLogger].
package runner
