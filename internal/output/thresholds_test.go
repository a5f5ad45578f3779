package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/torosent/flybench/internal/threshold"
)

func TestPrintThresholdResults(t *testing.T) {
	results := []threshold.Result{
		{Threshold: threshold.Threshold{Raw: "http_req_duration:p95 < 100", Metric: "http_req_duration", Aggregate: "p95", Operator: "<", Value: 100}, Actual: 80, Pass: true},
		{Threshold: threshold.Threshold{Raw: "http_req_failed:rate < 0.01", Metric: "http_req_failed", Aggregate: "rate", Operator: "<", Value: 0.01}, Actual: 0.05},
	}

	var buf bytes.Buffer
	PrintThresholdResults(&buf, results)
	out := buf.String()

	for _, want := range []string{"Thresholds (1/2 passed)", "[PASS] http_req_duration:p95 < 100", "[FAIL] http_req_failed:rate < 0.01 (actual 0.05)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	s := SummarizeThresholds(results)
	if s.Passed != 1 || s.Failed != 1 || s.Total != 2 {
		t.Errorf("summary = %+v", s)
	}
}

func TestPrintThresholdResultsNone(t *testing.T) {
	var buf bytes.Buffer
	PrintThresholdResults(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
	if SummarizeThresholds(nil) != nil {
		t.Error("expected nil summary")
	}
}
