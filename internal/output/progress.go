package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/torosent/flybench/internal/metrics"
)

// ProgressPrinter writes one line per dispatcher progress notification.
// With a collector attached, lines also carry live throughput and latency.
type ProgressPrinter struct {
	mu        sync.Mutex
	writer    io.Writer
	collector *metrics.Collector
	start     time.Time
	now       func() time.Time
}

// NewProgressPrinter returns a printer writing to w. collector may be nil.
func NewProgressPrinter(w io.Writer, collector *metrics.Collector) *ProgressPrinter {
	if w == nil {
		w = io.Discard
	}
	return &ProgressPrinter{
		writer:    w,
		collector: collector,
		start:     time.Now(),
		now:       time.Now,
	}
}

// Record feeds one result to the live collector.
func (p *ProgressPrinter) Record(r metrics.RequestResult) {
	if p.collector != nil {
		p.collector.Record(r)
	}
}

// Progress matches runner.ProgressFunc.
func (p *ProgressPrinter) Progress(completed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := fmt.Sprintf("  Completed: %d/%d", completed, total)
	if p.collector != nil {
		snap := p.collector.Snapshot()
		if snap.Completed > 0 {
			rps := 0.0
			if elapsed := p.now().Sub(p.start).Seconds(); elapsed > 0 {
				rps = float64(snap.Successes) / elapsed
			}
			line += fmt.Sprintf(" | OK: %d | Failed: %d | RPS: %.1f | Mean: %.1fms | P50: %.1fms | P99: %.1fms | Max: %.1fms",
				snap.Successes, snap.Failures, rps, snap.MeanMs, snap.P50Ms, snap.P99Ms, snap.MaxMs)
		}
	}
	fmt.Fprintln(p.writer, line)
}
