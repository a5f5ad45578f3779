// Package benchmark runs one labelled load test against the image service's
// transformation endpoint and keeps the runs produced in this process.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/flybench/internal/httpclient"
	"github.com/torosent/flybench/internal/metrics"
	"github.com/torosent/flybench/internal/runner"
)

// DefaultTransform resizes to 500x500 and is the transformation every
// benchmark request asks for unless configured otherwise.
const DefaultTransform = "w_500,h_500,rf_1"

// TestParameters records what was requested for a run.
type TestParameters struct {
	URL         string `json:"url" yaml:"url"`
	NumRequests int    `json:"num_requests" yaml:"num_requests"`
	Concurrency int    `json:"concurrency" yaml:"concurrency"`
}

// Run is one completed benchmark.
type Run struct {
	ID             string          `json:"id,omitempty" yaml:"id,omitempty"`
	ConfigName     string          `json:"config_name" yaml:"config_name"`
	Timestamp      Timestamp       `json:"timestamp" yaml:"timestamp"`
	TestParameters TestParameters  `json:"test_parameters" yaml:"test_parameters"`
	Metrics        metrics.Metrics `json:"metrics" yaml:"metrics"`
}

// Options configure an Orchestrator.
type Options struct {
	BaseURL   string
	TestImage string
	Transform string // DefaultTransform when empty

	// Timeout bounds each attempt. Zero means httpclient.DefaultTimeout.
	Timeout         time.Duration
	Client          *http.Client        // shared by every run; built from Timeout when nil
	ExecutorOptions []httpclient.Option // retry policy, tracing
	RatePerSecond   int

	// Wrap decorates the executor, e.g. runner.WithLogging.
	Wrap       func(runner.Executor) runner.Executor
	OnProgress runner.ProgressFunc
	OnResult   func(metrics.RequestResult)

	Now func() time.Time
}

// Orchestrator produces Runs. RunBenchmark may be called repeatedly; Runs
// returns everything produced so far in order.
type Orchestrator struct {
	opts   Options
	target string

	mu   sync.Mutex
	runs []Run
}

// BuildTargetURL joins base, transform and image into
// <base>/upload/<transform>/<image>. Trailing slashes on base are dropped.
func BuildTargetURL(base, transform, image string) string {
	if transform == "" {
		transform = DefaultTransform
	}
	return strings.TrimRight(base, "/") + "/upload/" + transform + "/" + strings.TrimLeft(image, "/")
}

// New validates opts and prepares an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, errors.New("benchmark: base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("benchmark: invalid base URL %q", opts.BaseURL)
	}
	if strings.TrimSpace(opts.TestImage) == "" {
		return nil, errors.New("benchmark: test image is required")
	}
	if opts.RatePerSecond < 0 {
		return nil, fmt.Errorf("benchmark: rate must be >= 0, got %d", opts.RatePerSecond)
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("benchmark: timeout must be >= 0, got %v", opts.Timeout)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		opts:   opts,
		target: BuildTargetURL(base, opts.Transform, opts.TestImage),
	}, nil
}

// Target returns the URL every request of every run hits.
func (o *Orchestrator) Target() string {
	return o.target
}

// RunBenchmark sends numRequests GETs with up to concurrency in flight and
// returns the timed, aggregated result. Request failures are part of the
// metrics; an error means the run could not be set up.
func (o *Orchestrator) RunBenchmark(ctx context.Context, configName string, numRequests, concurrency int) (Run, error) {
	if strings.TrimSpace(configName) == "" {
		return Run{}, errors.New("benchmark: config name is required")
	}
	if numRequests < 0 {
		return Run{}, fmt.Errorf("benchmark: num requests must be >= 0, got %d", numRequests)
	}
	if concurrency < 1 {
		return Run{}, fmt.Errorf("benchmark: concurrency must be >= 1, got %d", concurrency)
	}

	client, release := o.httpClient(concurrency)
	defer release()
	execOpts := append([]httpclient.Option{httpclient.WithTimeout(o.timeout())}, o.opts.ExecutorOptions...)
	exec, err := httpclient.NewExecutor(client, o.target, execOpts...)
	if err != nil {
		return Run{}, fmt.Errorf("benchmark: %w", err)
	}
	var executor runner.Executor = exec
	if o.opts.Wrap != nil {
		executor = o.opts.Wrap(executor)
	}

	dispatcher := runner.New(runner.Options{
		Concurrency:   concurrency,
		TotalRequests: numRequests,
		RatePerSecond: o.opts.RatePerSecond,
		Executor:      executor,
		OnProgress:    o.opts.OnProgress,
		OnResult:      o.opts.OnResult,
	})

	start := time.Now()
	results := dispatcher.Run(ctx)
	elapsed := time.Since(start)

	run := Run{
		ID:         ulid.Make().String(),
		ConfigName: configName,
		Timestamp:  NewTimestamp(o.opts.Now()),
		TestParameters: TestParameters{
			URL:         o.target,
			NumRequests: numRequests,
			Concurrency: concurrency,
		},
		Metrics: metrics.Compute(results, elapsed),
	}

	o.mu.Lock()
	o.runs = append(o.runs, run)
	o.mu.Unlock()

	return run, nil
}

// Runs returns a copy of the runs produced so far, oldest first.
func (o *Orchestrator) Runs() []Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Run(nil), o.runs...)
}

func (o *Orchestrator) timeout() time.Duration {
	if o.opts.Timeout > 0 {
		return o.opts.Timeout
	}
	return httpclient.DefaultTimeout
}

// httpClient returns the shared client, or a fresh one sized for this run
// whose timeout matches the per-attempt timeout.
func (o *Orchestrator) httpClient(concurrency int) (*http.Client, func()) {
	if o.opts.Client != nil {
		return o.opts.Client, func() {}
	}
	client := httpclient.NewClient(o.timeout(), concurrency)
	return client, client.CloseIdleConnections
}
