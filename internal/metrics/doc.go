// Package metrics turns raw per-request measurements into benchmark statistics.
//
// Every request attempted by the dispatcher produces exactly one [RequestResult].
// Once a run has finished, [Compute] reduces the collected results into a
// [Metrics] value holding throughput, tail latency, error rate and a status code
// histogram:
//
//	results := dispatcher.Run(ctx)
//	m := metrics.Compute(results, elapsed)
//	fmt.Println(m.Rounded().P95ResponseTimeMs)
//
// # Percentiles
//
// Percentiles are computed exactly over the sorted response times using linear
// interpolation between neighbouring order statistics, not nearest-rank. See
// [Percentile].
//
// # Live View
//
// While a run is in progress the [Collector] offers an approximate view backed
// by an HDR histogram. It is safe for concurrent use and is only meant for
// progress output; the final numbers always come from [Compute].
package metrics
