package output

import (
	"fmt"
	"io"

	"github.com/torosent/flybench/internal/threshold"
)

// ThresholdSummary tallies evaluated thresholds.
type ThresholdSummary struct {
	Total   int                   `json:"total"`
	Passed  int                   `json:"passed"`
	Failed  int                   `json:"failed"`
	Results []ThresholdResultJSON `json:"results"`
}

// ThresholdResultJSON is the serializable form of a threshold.Result.
type ThresholdResultJSON struct {
	Threshold string  `json:"threshold"`
	Metric    string  `json:"metric"`
	Aggregate string  `json:"aggregate"`
	Operator  string  `json:"operator"`
	Expected  float64 `json:"expected"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
}

// SummarizeThresholds converts evaluation results. It returns nil for none.
func SummarizeThresholds(results []threshold.Result) *ThresholdSummary {
	if len(results) == 0 {
		return nil
	}
	s := &ThresholdSummary{
		Total:   len(results),
		Results: make([]ThresholdResultJSON, len(results)),
	}
	for i, tr := range results {
		s.Results[i] = ThresholdResultJSON{
			Threshold: tr.Threshold.Raw,
			Metric:    tr.Threshold.Metric,
			Aggregate: tr.Threshold.Aggregate,
			Operator:  tr.Threshold.Operator,
			Expected:  tr.Threshold.Value,
			Actual:    tr.Actual,
			Pass:      tr.Pass,
		}
		if tr.Pass {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// PrintThresholdResults writes one PASS/FAIL line per threshold.
func PrintThresholdResults(w io.Writer, results []threshold.Result) {
	summary := SummarizeThresholds(results)
	if summary == nil {
		return
	}
	fmt.Fprintf(w, "\nThresholds (%d/%d passed):\n", summary.Passed, summary.Total)
	for _, r := range summary.Results {
		status := "PASS"
		if !r.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(w, "  [%s] %s (actual %.2f)\n", status, r.Threshold, r.Actual)
	}
}
