package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/torosent/flybench/internal/benchmark"
	"github.com/torosent/flybench/internal/store"
)

// Format selects how PrintSummaryTable renders.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts a format name, case-insensitively. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want table, json, yaml or markdown)", s)
	}
}

// SummaryOptions control PrintSummaryTable.
type SummaryOptions struct {
	Format Format
	// SortKey is a gjson path evaluated against each run's JSON form,
	// e.g. "metrics.p95_response_time_ms". Empty keeps file order.
	SortKey    string
	Descending bool
}

// SummaryRow is one line of the cross-run summary.
type SummaryRow struct {
	Configuration string  `json:"config_name" yaml:"config_name"`
	Timestamp     string  `json:"timestamp" yaml:"timestamp"`
	RPS           float64 `json:"requests_per_second" yaml:"requests_per_second"`
	MeanMs        float64 `json:"mean_response_time_ms" yaml:"mean_response_time_ms"`
	P95Ms         float64 `json:"p95_response_time_ms" yaml:"p95_response_time_ms"`
	P99Ms         float64 `json:"p99_response_time_ms" yaml:"p99_response_time_ms"`
	ErrorPercent  float64 `json:"error_percent" yaml:"error_percent"`
	Successful    int     `json:"successful_requests" yaml:"successful_requests"`
	Total         int     `json:"total_requests" yaml:"total_requests"`
}

// Summary is the structured form emitted for json and yaml.
type Summary struct {
	BenchmarkTimestamp string       `json:"benchmark_timestamp" yaml:"benchmark_timestamp"`
	BaseURL            string       `json:"base_url" yaml:"base_url"`
	TestImage          string       `json:"test_image" yaml:"test_image"`
	Results            []SummaryRow `json:"results" yaml:"results"`
}

// BuildSummary flattens a results file into rows, ordered per opts.
func BuildSummary(file *store.ResultsFile, opts SummaryOptions) (Summary, error) {
	runs, err := sortRuns(file.Results, opts.SortKey, opts.Descending)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{
		BenchmarkTimestamp: file.BenchmarkTimestamp.String(),
		BaseURL:            file.BaseURL,
		TestImage:          file.TestImage,
		Results:            make([]SummaryRow, 0, len(runs)),
	}
	for _, run := range runs {
		m := run.Metrics.Rounded()
		s.Results = append(s.Results, SummaryRow{
			Configuration: run.ConfigName,
			Timestamp:     run.Timestamp.String(),
			RPS:           m.RequestsPerSecond,
			MeanMs:        m.MeanResponseTimeMs,
			P95Ms:         m.P95ResponseTimeMs,
			P99Ms:         m.P99ResponseTimeMs,
			ErrorPercent:  round2(m.ErrorRate * 100),
			Successful:    m.SuccessfulRequests,
			Total:         m.TotalRequests,
		})
	}
	return s, nil
}

// PrintSummaryTable renders every run of a results file.
func PrintSummaryTable(w io.Writer, file *store.ResultsFile, opts SummaryOptions) error {
	if file == nil {
		return fmt.Errorf("no results file")
	}
	format := opts.Format
	if format == "" {
		format = FormatTable
	}
	summary, err := BuildSummary(file, opts)
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(summary); err != nil {
			return err
		}
		return enc.Close()
	case FormatMarkdown:
		return writeMarkdown(w, summary)
	case FormatTable:
		return writeTable(w, summary)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func writeTable(w io.Writer, s Summary) error {
	PrintBanner(w, "BENCHMARK SUMMARY")
	fmt.Fprintf(w, "\nBase URL: %s\n", s.BaseURL)
	fmt.Fprintf(w, "Test Image: %s\n", s.TestImage)
	fmt.Fprintf(w, "Benchmark Timestamp: %s\n\n", s.BenchmarkTimestamp)

	if len(s.Results) == 0 {
		fmt.Fprintln(w, "No results recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Configuration\tRPS\tMean RT\tP95 RT\tP99 RT\tError %\tOK/Total")
	for _, r := range s.Results {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%d/%d\n",
			r.Configuration, r.RPS, r.MeanMs, r.P95Ms, r.P99Ms, r.ErrorPercent, r.Successful, r.Total)
	}
	return tw.Flush()
}

func writeMarkdown(w io.Writer, s Summary) error {
	fmt.Fprintf(w, "## Benchmark summary\n\n")
	fmt.Fprintf(w, "- Base URL: `%s`\n- Test image: `%s`\n- Started: %s\n\n", s.BaseURL, s.TestImage, s.BenchmarkTimestamp)
	fmt.Fprintln(w, "| Configuration | RPS | Mean RT (ms) | P95 RT (ms) | P99 RT (ms) | Error % | OK/Total |")
	fmt.Fprintln(w, "|---|---:|---:|---:|---:|---:|---:|")
	for _, r := range s.Results {
		_, err := fmt.Fprintf(w, "| %s | %.2f | %.2f | %.2f | %.2f | %.2f | %d/%d |\n",
			strings.ReplaceAll(r.Configuration, "|", `\|`), r.RPS, r.MeanMs, r.P95Ms, r.P99Ms, r.ErrorPercent, r.Successful, r.Total)
		if err != nil {
			return err
		}
	}
	return nil
}

// sortRuns orders runs by the value at a gjson path. Runs missing the key
// sort after those that have it, in file order.
func sortRuns(runs []benchmark.Run, key string, desc bool) ([]benchmark.Run, error) {
	out := make([]benchmark.Run, len(runs))
	copy(out, runs)
	if key == "" {
		return out, nil
	}

	values := make([]gjson.Result, len(out))
	found := false
	for i, run := range out {
		raw, err := json.Marshal(run)
		if err != nil {
			return nil, fmt.Errorf("encode run %q: %w", run.ConfigName, err)
		}
		values[i] = gjson.GetBytes(raw, key)
		found = found || values[i].Exists()
	}
	if len(out) > 0 && !found {
		return nil, fmt.Errorf("sort key %q matches no field in the results", key)
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := values[idx[a]], values[idx[b]]
		if va.Exists() != vb.Exists() {
			return va.Exists()
		}
		if !va.Exists() {
			return false
		}
		if desc {
			return vb.Less(va, true)
		}
		return va.Less(vb, true)
	})

	sorted := make([]benchmark.Run, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
