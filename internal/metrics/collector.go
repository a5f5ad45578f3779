package metrics

import (
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector keeps an approximate running view of a benchmark in progress.
type Collector struct {
	mu        sync.Mutex
	hist      *hdrhistogram.Histogram
	successes int64
	failures  int64
}

// Snapshot is a point-in-time view of a Collector.
type Snapshot struct {
	Completed int64
	Successes int64
	Failures  int64
	MeanMs    float64
	P50Ms     float64
	P99Ms     float64
	MaxMs     float64
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &Collector{hist: hdrhistogram.New(1, 60_000_000, 3)}
}

// Record adds one completed request.
func (c *Collector) Record(r RequestResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	us := int64(r.ResponseTimeMs * 1000)
	if us < c.hist.LowestTrackableValue() {
		us = c.hist.LowestTrackableValue()
	}
	if us > c.hist.HighestTrackableValue() {
		us = c.hist.HighestTrackableValue()
	}
	_ = c.hist.RecordValue(us)

	if r.Success {
		c.successes++
	} else {
		c.failures++
	}
}

// Snapshot returns the current counters and latency estimates.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Completed: c.successes + c.failures,
		Successes: c.successes,
		Failures:  c.failures,
	}
	if c.hist.TotalCount() > 0 {
		s.MeanMs = c.hist.Mean() / 1000
		s.P50Ms = float64(c.hist.ValueAtQuantile(50)) / 1000
		s.P99Ms = float64(c.hist.ValueAtQuantile(99)) / 1000
		s.MaxMs = float64(c.hist.Max()) / 1000
	}
	return s
}
