package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/torosent/flybench/internal/benchmark"
	"github.com/torosent/flybench/internal/config"
	"github.com/torosent/flybench/internal/httpclient"
	"github.com/torosent/flybench/internal/locator"
	"github.com/torosent/flybench/internal/metrics"
	"github.com/torosent/flybench/internal/output"
	"github.com/torosent/flybench/internal/runner"
	"github.com/torosent/flybench/internal/store"
	"github.com/torosent/flybench/internal/threshold"
	"github.com/torosent/flybench/internal/tracing"
)

const (
	persistTimeout  = 30 * time.Second
	shutdownTimeout = 5 * time.Second
	imageDir        = "web"
)

var errThresholdsFailed = errors.New("one or more thresholds failed")

// newInspector is replaced in tests.
var newInspector = func() (locator.Inspector, func(), error) {
	d, err := locator.NewDockerInspector()
	if err != nil {
		return nil, nil, err
	}
	return d, func() { _ = d.Close() }, nil
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one labelled benchmark and append it to the results file",
		Example: `  flybench run --url http://localhost:8099 --config-name cache_enabled
  flybench run --container-name flyimg --container-port 80 --config-name baseline -n 500 -c 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewLoader().FromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runBenchmark(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	config.RegisterFlags(cmd)
	return cmd
}

func runBenchmark(parent context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	log, err := newLogger(stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	baseURL, err := resolveBaseURL(ctx, cfg, log)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		warnMissingImage(log, cfg.TestImage)
	}

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("flushing traces")
		}
	}()

	client := httpclient.NewClient(cfg.Timeout, cfg.Concurrency)
	defer client.CloseIdleConnections()

	policy := httpclient.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.Retries + 1
	policy.BackoffFactor = cfg.Backoff

	opts := benchmark.Options{
		BaseURL:   baseURL,
		TestImage: cfg.TestImage,
		Transform: cfg.Transform,
		Timeout:   cfg.Timeout,
		Client:    client,
		ExecutorOptions: []httpclient.Option{
			httpclient.WithRetryPolicy(policy),
			httpclient.WithTracing(provider),
		},
		RatePerSecond: cfg.Rate,
	}
	if cfg.LogErrors {
		failures := &logrusFailureLogger{log: log}
		opts.Wrap = func(exec runner.Executor) runner.Executor {
			return runner.WithLogging(exec, failures)
		}
	}
	if !cfg.JSONOutput {
		progress := output.NewProgressPrinter(stdout, metrics.NewCollector())
		opts.OnProgress = progress.Progress
		opts.OnResult = progress.Record
	}

	orchestrator, err := benchmark.New(opts)
	if err != nil {
		return err
	}

	if !cfg.JSONOutput {
		output.PrintBanner(stdout, "Running benchmark: "+cfg.ConfigName)
		fmt.Fprintf(stdout, "Target: %s\n", orchestrator.Target())
		fmt.Fprintf(stdout, "Running load test: %d requests with %d concurrent connections...\n", cfg.NumRequests, cfg.Concurrency)
	}
	log.WithFields(logrus.Fields{
		"config":      cfg.ConfigName,
		"target":      orchestrator.Target(),
		"requests":    cfg.NumRequests,
		"concurrency": cfg.Concurrency,
	}).Debug("starting benchmark")

	run, err := orchestrator.RunBenchmark(ctx, cfg.ConfigName, cfg.NumRequests, cfg.Concurrency)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		log.Warn("interrupted; remaining requests were recorded as failures")
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(stdout, run); err != nil {
			return err
		}
	} else {
		output.PrintRunSummary(stdout, run)
	}

	persistCtx, cancelPersist := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancelPersist()
	results := store.Open(cfg.Output, store.Meta{BaseURL: baseURL, TestImage: cfg.TestImage}, log)
	file, err := results.Append(persistCtx, orchestrator.Runs()...)
	if err != nil {
		return err
	}
	if cfg.JSONOutput {
		log.WithField("path", results.Path()).Info("results saved")
	} else {
		output.PrintBanner(stdout, "Results saved to: "+results.Path())
	}

	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg.HTMLOutput, file); err != nil {
			return err
		}
		log.WithField("path", cfg.HTMLOutput).Info("html report written")
	}

	return checkThresholds(cfg.Thresholds, run, stdout, stderr, cfg.JSONOutput)
}

func resolveBaseURL(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (string, error) {
	var inspector locator.Inspector
	if strings.TrimSpace(cfg.BaseURL) == "" && strings.TrimSpace(cfg.ContainerName) != "" {
		insp, closeFn, err := newInspector()
		if err != nil {
			log.WithError(err).Warn("docker client unavailable")
		} else {
			inspector = insp
			defer closeFn()
		}
	}
	return locator.New(inspector, log).Resolve(ctx, locator.Options{
		URL:           cfg.BaseURL,
		ContainerName: cfg.ContainerName,
		Port:          cfg.Port,
		ContainerPort: cfg.ContainerPort,
	})
}

// warnMissingImage flags a local setup whose test image is not in the
// service's web root.
func warnMissingImage(log logrus.FieldLogger, image string) {
	path := filepath.Join(imageDir, image)
	if _, err := os.Stat(path); err != nil {
		log.WithField("path", path).Warn("test image not found locally; make sure it exists in the web/ directory or use --url for remote testing")
	}
}

func writeHTMLReport(path string, file *store.ResultsFile) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html report: %w", err)
	}
	if err := output.GenerateHTMLReport(f, file); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func checkThresholds(raw []string, run benchmark.Run, stdout, stderr io.Writer, jsonOutput bool) error {
	if len(raw) == 0 {
		return nil
	}
	thresholds, err := threshold.ParseMultiple(raw)
	if err != nil {
		return err
	}
	results := threshold.NewEvaluator(thresholds).Evaluate(run.Metrics)
	w := stdout
	if jsonOutput {
		w = stderr
	}
	output.PrintThresholdResults(w, results)
	if !threshold.AllPassed(results) {
		return errThresholdsFailed
	}
	return nil
}

type logrusFailureLogger struct {
	log logrus.FieldLogger
}

func (l *logrusFailureLogger) LogFailure(r metrics.RequestResult) {
	entry := l.log.WithFields(logrus.Fields{
		"status":     r.StatusCode,
		"elapsed_ms": fmt.Sprintf("%.1f", r.ResponseTimeMs),
	})
	if r.ErrorKind != "" {
		entry = entry.WithField("kind", r.ErrorKind)
	}
	entry.Warnf("request failed: %s", r.Error)
}
