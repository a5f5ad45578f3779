package benchmark

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/flybench/internal/httpclient"
	"github.com/torosent/flybench/internal/metrics"
	"github.com/torosent/flybench/internal/runner"
)

func TestBuildTargetURL(t *testing.T) {
	tests := []struct {
		base, transform, image, want string
	}{
		{"http://localhost:8099", "", "Rovinj-Croatia.jpg", "http://localhost:8099/upload/w_500,h_500,rf_1/Rovinj-Croatia.jpg"},
		{"http://localhost:8099///", "", "a.jpg", "http://localhost:8099/upload/w_500,h_500,rf_1/a.jpg"},
		{"http://img.example.com/base/", "w_100", "/x.png", "http://img.example.com/base/upload/w_100/x.png"},
	}
	for _, tt := range tests {
		if got := BuildTargetURL(tt.base, tt.transform, tt.image); got != tt.want {
			t.Errorf("BuildTargetURL(%q, %q, %q) = %q, want %q", tt.base, tt.transform, tt.image, got, tt.want)
		}
	}
}

func TestNewValidatesOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"missing base", Options{TestImage: "a.jpg"}},
		{"bad base", Options{BaseURL: "not a url", TestImage: "a.jpg"}},
		{"missing image", Options{BaseURL: "http://localhost"}},
		{"negative rate", Options{BaseURL: "http://localhost", TestImage: "a.jpg", RatePerSecond: -1}},
		{"negative timeout", Options{BaseURL: "http://localhost", TestImage: "a.jpg", Timeout: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); err == nil {
				t.Fatal("New() error = nil, want error")
			}
		})
	}
}

func TestRunBenchmarkEndToEnd(t *testing.T) {
	var hits atomic.Int32
	var gotPath atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotPath.Store(r.URL.Path)
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte("jpegbytes"))
	}))
	defer server.Close()

	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	orch, err := New(Options{
		BaseURL:   server.URL + "/",
		TestImage: "Rovinj-Croatia.jpg",
		Now:       func() time.Time { return fixed },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	run, err := orch.RunBenchmark(context.Background(), "baseline", 4, 2)
	if err != nil {
		t.Fatalf("RunBenchmark() error = %v", err)
	}

	if hits.Load() != 4 {
		t.Errorf("server hits = %d, want 4", hits.Load())
	}
	if p, _ := gotPath.Load().(string); p != "/upload/w_500,h_500,rf_1/Rovinj-Croatia.jpg" {
		t.Errorf("request path = %q", p)
	}
	m := run.Metrics
	if m.TotalRequests != 4 || m.SuccessfulRequests != 4 || m.FailedRequests != 0 {
		t.Errorf("counts = %d/%d/%d, want 4/4/0", m.TotalRequests, m.SuccessfulRequests, m.FailedRequests)
	}
	if m.StatusCodes[200] != 4 || len(m.StatusCodes) != 1 {
		t.Errorf("StatusCodes = %v, want {200:4}", m.StatusCodes)
	}
	if m.MeanResponseTimeMs < 50 || m.MeanResponseTimeMs > 500 {
		t.Errorf("MeanResponseTimeMs = %.2f, want about 50", m.MeanResponseTimeMs)
	}
	if m.ErrorRate != 0 {
		t.Errorf("ErrorRate = %v, want 0", m.ErrorRate)
	}
	if m.RequestsPerSecond <= 0 {
		t.Errorf("RequestsPerSecond = %v, want > 0", m.RequestsPerSecond)
	}
	// Two waves of two 50ms requests.
	if m.TotalTimeS < 0.1 {
		t.Errorf("TotalTimeS = %v, want >= 0.1", m.TotalTimeS)
	}

	if run.ConfigName != "baseline" || !run.Timestamp.Equal(fixed) {
		t.Errorf("run label = %q at %v", run.ConfigName, run.Timestamp)
	}
	if run.TestParameters != (TestParameters{URL: orch.Target(), NumRequests: 4, Concurrency: 2}) {
		t.Errorf("TestParameters = %+v", run.TestParameters)
	}
	if _, err := ulid.Parse(run.ID); err != nil {
		t.Errorf("ID %q is not a ULID: %v", run.ID, err)
	}
}

func TestRunBenchmarkAllFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	policy := httpclient.DefaultRetryPolicy()
	policy.BackoffFactor = time.Millisecond
	orch, err := New(Options{
		BaseURL:         server.URL,
		TestImage:       "a.jpg",
		ExecutorOptions: []httpclient.Option{httpclient.WithRetryPolicy(policy)},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	run, err := orch.RunBenchmark(context.Background(), "broken", 3, 3)
	if err != nil {
		t.Fatalf("RunBenchmark() error = %v", err)
	}
	if run.Metrics.ErrorRate != 1 {
		t.Errorf("ErrorRate = %v, want 1", run.Metrics.ErrorRate)
	}
	if run.Metrics.RequestsPerSecond != 0 {
		t.Errorf("RequestsPerSecond = %v, want 0", run.Metrics.RequestsPerSecond)
	}
	if run.Metrics.StatusCodes[503] != 3 {
		t.Errorf("StatusCodes = %v, want {503:3}", run.Metrics.StatusCodes)
	}
}

func TestRunBenchmarkZeroRequests(t *testing.T) {
	orch, err := New(Options{BaseURL: "http://127.0.0.1:1", TestImage: "a.jpg"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	run, err := orch.RunBenchmark(context.Background(), "empty", 0, 10)
	if err != nil {
		t.Fatalf("RunBenchmark() error = %v", err)
	}
	if run.Metrics.TotalRequests != 0 || run.Metrics.ErrorRate != 1 {
		t.Errorf("Metrics = %+v, want empty run with error rate 1", run.Metrics)
	}
}

func TestRunBenchmarkRejectsBadArguments(t *testing.T) {
	orch, err := New(Options{BaseURL: "http://localhost", TestImage: "a.jpg"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cases := []struct {
		name        string
		config      string
		requests    int
		concurrency int
	}{
		{"empty name", " ", 1, 1},
		{"negative requests", "x", -1, 1},
		{"zero concurrency", "x", 1, 0},
	}
	for _, tc := range cases {
		if _, err := orch.RunBenchmark(context.Background(), tc.config, tc.requests, tc.concurrency); err == nil {
			t.Errorf("%s: RunBenchmark() error = nil, want error", tc.name)
		}
	}
	if len(orch.Runs()) != 0 {
		t.Errorf("Runs() = %d, rejected runs must not be recorded", len(orch.Runs()))
	}
}

func TestRunsAccumulateInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	orch, err := New(Options{BaseURL: server.URL, TestImage: "a.jpg"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, name := range []string{"first", "second", "third"} {
		if _, err := orch.RunBenchmark(context.Background(), name, 2, 1); err != nil {
			t.Fatalf("RunBenchmark(%s) error = %v", name, err)
		}
	}

	runs := orch.Runs()
	var names []string
	for _, r := range runs {
		names = append(names, r.ConfigName)
	}
	if strings.Join(names, ",") != "first,second,third" {
		t.Errorf("Runs() order = %v", names)
	}
	runs[0].ConfigName = "mutated"
	if orch.Runs()[0].ConfigName != "first" {
		t.Error("Runs() exposed internal storage")
	}
}

func TestRunBenchmarkHooks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	var wrapped, seen atomic.Int32
	orch, err := New(Options{
		BaseURL:   server.URL,
		TestImage: "a.jpg",
		Wrap: func(inner runner.Executor) runner.Executor {
			return runner.ExecutorFunc(func(ctx context.Context) metrics.RequestResult {
				wrapped.Add(1)
				return inner.Execute(ctx)
			})
		},
		OnResult: func(metrics.RequestResult) { seen.Add(1) },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := orch.RunBenchmark(context.Background(), "hooks", 5, 2); err != nil {
		t.Fatalf("RunBenchmark() error = %v", err)
	}
	if wrapped.Load() != 5 || seen.Load() != 5 {
		t.Errorf("wrapped=%d seen=%d, want 5 and 5", wrapped.Load(), seen.Load())
	}
}

func TestFallbackClientUsesConfiguredTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"default", 0, httpclient.DefaultTimeout},
		{"longer than default", 45 * time.Second, 45 * time.Second},
		{"shorter than default", 2 * time.Second, 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch, err := New(Options{BaseURL: "http://localhost", TestImage: "a.jpg", Timeout: tt.timeout})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			client, release := orch.httpClient(4)
			defer release()
			if client.Timeout != tt.want {
				t.Errorf("client.Timeout = %s, want %s", client.Timeout, tt.want)
			}
			if got := orch.timeout(); got != tt.want {
				t.Errorf("timeout() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSharedClientIsNotReplaced(t *testing.T) {
	shared := &http.Client{}
	orch, err := New(Options{BaseURL: "http://localhost", TestImage: "a.jpg", Client: shared, Timeout: time.Minute})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	client, release := orch.httpClient(4)
	release()
	if client != shared {
		t.Error("httpClient() replaced the shared client")
	}
}

func TestRunBenchmarkAppliesTimeoutPerAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	orch, err := New(Options{BaseURL: server.URL, TestImage: "a.jpg", Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	run, err := orch.RunBenchmark(context.Background(), "slow", 2, 2)
	if err != nil {
		t.Fatalf("RunBenchmark() error = %v", err)
	}
	if run.Metrics.ErrorRate != 1 {
		t.Errorf("ErrorRate = %v, want 1", run.Metrics.ErrorRate)
	}
}
