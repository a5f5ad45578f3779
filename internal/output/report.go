package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/torosent/flybench/internal/benchmark"
	"github.com/torosent/flybench/internal/metrics"
)

const ruleWidth = 80

// PrintRunSummary outputs a human-readable summary of one benchmark run.
func PrintRunSummary(w io.Writer, run benchmark.Run) {
	m := run.Metrics.Rounded()

	fmt.Fprintf(w, "\nResults for %s:\n", run.ConfigName)
	fmt.Fprintf(w, "  Target:              %s\n", run.TestParameters.URL)
	fmt.Fprintf(w, "  Requests per second: %.2f\n", m.RequestsPerSecond)
	fmt.Fprintf(w, "  Mean response time:  %.2f ms\n", m.MeanResponseTimeMs)
	fmt.Fprintf(w, "  P50 response time:   %.2f ms\n", m.P50ResponseTimeMs)
	fmt.Fprintf(w, "  P95 response time:   %.2f ms\n", m.P95ResponseTimeMs)
	fmt.Fprintf(w, "  P99 response time:   %.2f ms\n", m.P99ResponseTimeMs)
	fmt.Fprintf(w, "  Min / Max:           %.2f / %.2f ms\n", m.MinResponseTimeMs, m.MaxResponseTimeMs)
	fmt.Fprintf(w, "  Error rate:          %.2f%%\n", m.ErrorRate*100)
	fmt.Fprintf(w, "  Successful requests: %d/%d\n", m.SuccessfulRequests, m.TotalRequests)
	fmt.Fprintf(w, "  Total time:          %.2f s\n", m.TotalTimeS)

	fmt.Fprintln(w, "\nStatus Codes:")
	writeStatusCodes(w, m.StatusCodes, "  ")
}

// PrintJSONReport outputs the run as indented JSON with reporting precision.
func PrintJSONReport(w io.Writer, run benchmark.Run) error {
	run.Metrics = run.Metrics.Rounded()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

// PrintBanner writes a titled rule block.
func PrintBanner(w io.Writer, title string) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", rule, title, rule)
}

func writeStatusCodes(w io.Writer, codes map[int]int, indent string) {
	rows := metrics.FlattenStatusCodes(codes)
	if len(rows) == 0 {
		fmt.Fprintf(w, "%sNone\n", indent)
		return
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s%s: %d\n", indent, metrics.StatusLabel(row.Code), row.Count)
	}
}
