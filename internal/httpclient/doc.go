// Package httpclient performs the measured HTTP requests of a benchmark.
//
// [NewClient] builds an HTTP client tuned for load generation: generous idle
// connection pooling so that workers reuse connections, and a per-attempt
// timeout. A single client is shared by every worker.
//
// [Executor] issues one GET against a fixed target and reports the outcome as
// a [metrics.RequestResult]:
//
//	client := httpclient.NewClient(10*time.Second, 10)
//	exec, err := httpclient.NewExecutor(client, targetURL)
//	if err != nil {
//		return err
//	}
//	result := exec.Execute(ctx)
//
// Responses with a transient status (429, 500, 502, 503, 504) are retried
// according to a [RetryPolicy] with exponential backoff. The reported response
// time covers all attempts and backoff delays, which is the latency a caller
// would observe. Transport failures are never retried and never returned as
// errors: they become results with status code 0.
package httpclient
