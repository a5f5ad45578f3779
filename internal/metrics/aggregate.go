package metrics

import (
	"math"
	"sort"
	"time"
)

// Metrics summarizes one benchmark run.
type Metrics struct {
	TotalRequests      int         `json:"total_requests" yaml:"total_requests"`
	SuccessfulRequests int         `json:"successful_requests" yaml:"successful_requests"`
	FailedRequests     int         `json:"failed_requests" yaml:"failed_requests"`
	RequestsPerSecond  float64     `json:"requests_per_second" yaml:"requests_per_second"`
	TotalTimeS         float64     `json:"total_time" yaml:"total_time"`
	MeanResponseTimeMs float64     `json:"mean_response_time_ms" yaml:"mean_response_time_ms"`
	MinResponseTimeMs  float64     `json:"min_response_time_ms" yaml:"min_response_time_ms"`
	MaxResponseTimeMs  float64     `json:"max_response_time_ms" yaml:"max_response_time_ms"`
	P50ResponseTimeMs  float64     `json:"p50_response_time_ms" yaml:"p50_response_time_ms"`
	P95ResponseTimeMs  float64     `json:"p95_response_time_ms" yaml:"p95_response_time_ms"`
	P99ResponseTimeMs  float64     `json:"p99_response_time_ms" yaml:"p99_response_time_ms"`
	ErrorRate          float64     `json:"error_rate" yaml:"error_rate"`
	StatusCodes        map[int]int `json:"status_codes" yaml:"status_codes"`
}

// Compute reduces results into Metrics. The input order does not matter and
// the slice is not modified.
//
// An empty result set is reported as a total failure: every statistic is zero
// and ErrorRate is 1.0.
func Compute(results []RequestResult, elapsed time.Duration) Metrics {
	m := Metrics{
		TotalRequests: len(results),
		TotalTimeS:    elapsed.Seconds(),
		StatusCodes:   make(map[int]int),
	}

	times := make([]float64, 0, len(results))
	for _, r := range results {
		times = append(times, r.ResponseTimeMs)
		if r.Success {
			m.SuccessfulRequests++
		} else {
			m.FailedRequests++
		}
		m.StatusCodes[r.StatusCode]++
	}

	if len(times) == 0 {
		m.ErrorRate = 1.0
		return m
	}
	sort.Float64s(times)

	var sum float64
	for _, v := range times {
		sum += v
	}
	m.MeanResponseTimeMs = sum / float64(len(times))
	m.MinResponseTimeMs = times[0]
	m.MaxResponseTimeMs = times[len(times)-1]
	m.P50ResponseTimeMs = Percentile(times, 0.50)
	m.P95ResponseTimeMs = Percentile(times, 0.95)
	m.P99ResponseTimeMs = Percentile(times, 0.99)

	if secs := elapsed.Seconds(); secs > 0 {
		m.RequestsPerSecond = float64(m.SuccessfulRequests) / secs
	}
	m.ErrorRate = float64(m.FailedRequests) / float64(m.TotalRequests)
	return m
}

// Percentile returns the p-quantile (0..1) of an ascending slice, linearly
// interpolating between the two closest ranks. It returns 0 for empty input.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	k := float64(n-1) * p
	f := int(math.Floor(k))
	c := k - float64(f)
	if f+1 >= n {
		return sorted[f]
	}
	return sorted[f] + c*(sorted[f+1]-sorted[f])
}

// Rounded returns a copy rounded for reporting: two decimals for every
// measurement and four for ErrorRate.
func (m Metrics) Rounded() Metrics {
	out := m
	out.RequestsPerSecond = round(m.RequestsPerSecond, 2)
	out.TotalTimeS = round(m.TotalTimeS, 2)
	out.MeanResponseTimeMs = round(m.MeanResponseTimeMs, 2)
	out.MinResponseTimeMs = round(m.MinResponseTimeMs, 2)
	out.MaxResponseTimeMs = round(m.MaxResponseTimeMs, 2)
	out.P50ResponseTimeMs = round(m.P50ResponseTimeMs, 2)
	out.P95ResponseTimeMs = round(m.P95ResponseTimeMs, 2)
	out.P99ResponseTimeMs = round(m.P99ResponseTimeMs, 2)
	out.ErrorRate = round(m.ErrorRate, 4)
	if m.StatusCodes != nil {
		out.StatusCodes = make(map[int]int, len(m.StatusCodes))
		for code, n := range m.StatusCodes {
			out.StatusCodes[code] = n
		}
	}
	return out
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
