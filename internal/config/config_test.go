package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/torosent/flybench/internal/config"
)

// loadArgs parses args the way the run command does and builds a Config.
func loadArgs(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "run"}
	config.RegisterFlags(cmd)
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("Parse(%v) error = %v", args, err)
	}
	return config.NewLoader().FromFlags(cmd.Flags())
}

func TestParseFlagsDefaults(t *testing.T) {
	cfg, err := loadArgs(t)
	if err != nil {
		t.Fatalf("FromFlags() error = %v", err)
	}

	if cfg.BaseURL != "" {
		t.Errorf("BaseURL = %q, want empty", cfg.BaseURL)
	}
	if cfg.Port != 80 || cfg.ContainerPort != 80 {
		t.Errorf("Port/ContainerPort = %d/%d, want 80/80", cfg.Port, cfg.ContainerPort)
	}
	if cfg.TestImage != "Rovinj-Croatia.jpg" {
		t.Errorf("TestImage = %q", cfg.TestImage)
	}
	if cfg.Transform != "w_500,h_500,rf_1" {
		t.Errorf("Transform = %q", cfg.Transform)
	}
	if cfg.NumRequests != 1000 {
		t.Errorf("NumRequests = %d, want 1000", cfg.NumRequests)
	}
	if cfg.Concurrency != 10 {
		t.Errorf("Concurrency = %d, want 10", cfg.Concurrency)
	}
	if cfg.Rate != 0 {
		t.Errorf("Rate = %d, want 0", cfg.Rate)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %s, want 10s", cfg.Timeout)
	}
	if cfg.Retries != 2 {
		t.Errorf("Retries = %d, want 2", cfg.Retries)
	}
	if cfg.Backoff != 100*time.Millisecond {
		t.Errorf("Backoff = %s, want 100ms", cfg.Backoff)
	}
	if cfg.Output != "benchmark_results.json" {
		t.Errorf("Output = %q", cfg.Output)
	}
	if cfg.JSONOutput {
		t.Errorf("JSONOutput = true, want false")
	}
	if cfg.Tracing.Propagate != nil {
		t.Errorf("Tracing.Propagate = %v, want nil", *cfg.Tracing.Propagate)
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{
		"url": "http://localhost:8080",
		"config_name": "cache-on",
		"num_requests": 500,
		"concurrency": 25,
		"rate": 100,
		"timeout": "45s",
		"retries": 3,
		"jsonOutput": true,
		"tracing": {"endpoint": "otel:4317", "protocol": "http"}
	}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := loadArgs(t, "--config", path, "--config-name", "cache-off", "-c", "50")
	if err != nil {
		t.Fatalf("FromFlags() error = %v", err)
	}

	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.ConfigName != "cache-off" {
		t.Errorf("ConfigName = %q, want flag value cache-off", cfg.ConfigName)
	}
	if cfg.NumRequests != 500 {
		t.Errorf("NumRequests = %d, want 500", cfg.NumRequests)
	}
	if cfg.Concurrency != 50 {
		t.Errorf("Concurrency = %d, want 50", cfg.Concurrency)
	}
	if cfg.Rate != 100 {
		t.Errorf("Rate = %d, want 100", cfg.Rate)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %s, want 45s", cfg.Timeout)
	}
	if cfg.Retries != 3 {
		t.Errorf("Retries = %d, want 3", cfg.Retries)
	}
	if !cfg.JSONOutput {
		t.Errorf("JSONOutput = false, want true")
	}
	if cfg.Tracing.Endpoint != "otel:4317" || cfg.Tracing.Protocol != "http" {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := strings.Join([]string{
		"container_name: imgproxy",
		"container_port: 8080",
		"test_image: sample.png",
		"transform: w_100,h_100",
		"config_name: small",
		"backoff: 250ms",
		"thresholds:",
		"  - \"http_req_duration:p95 < 500\"",
		"  - \"http_req_failed:rate < 0.01\"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := loadArgs(t, "--config", path)
	if err != nil {
		t.Fatalf("FromFlags() error = %v", err)
	}

	if cfg.ContainerName != "imgproxy" || cfg.ContainerPort != 8080 {
		t.Errorf("container = %q:%d", cfg.ContainerName, cfg.ContainerPort)
	}
	if cfg.TestImage != "sample.png" || cfg.Transform != "w_100,h_100" {
		t.Errorf("image/transform = %q/%q", cfg.TestImage, cfg.Transform)
	}
	if cfg.Backoff != 250*time.Millisecond {
		t.Errorf("Backoff = %s, want 250ms", cfg.Backoff)
	}
	if len(cfg.Thresholds) != 2 {
		t.Errorf("Thresholds = %v, want 2 entries", cfg.Thresholds)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := loadArgs(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("FromFlags() error = nil, want error for missing file")
	}
}

func TestConfigValidationErrors(t *testing.T) {
	valid := func() config.Config {
		c := *config.Default()
		c.ConfigName = "baseline"
		c.BaseURL = "http://localhost:8080"
		return c
	}

	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   []string
	}{
		{
			name:   "missing name and target",
			mutate: func(c *config.Config) { c.ConfigName = ""; c.BaseURL = "" },
			want:   []string{"config name", "url or container name"},
		},
		{
			name: "negative values",
			mutate: func(c *config.Config) {
				c.Concurrency = 0
				c.NumRequests = -1
				c.Rate = -5
				c.Timeout = 0
				c.Retries = -1
			},
			want: []string{"concurrency", "num requests", "rate", "timeout", "retries"},
		},
		{
			name:   "too many retries",
			mutate: func(c *config.Config) { c.Retries = config.MaxRetries + 1 },
			want:   []string{"retries must be between 0 and 10, got 11"},
		},
		{
			name:   "bad threshold",
			mutate: func(c *config.Config) { c.Thresholds = []string{"nonsense"} },
			want:   []string{"threshold"},
		},
		{
			name:   "bad tracing",
			mutate: func(c *config.Config) { c.Tracing.Protocol = "thrift"; c.Tracing.SampleRate = 2 },
			want:   []string{"protocol", "sample_rate"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			have := valid()
			tc.mutate(&have)
			err := have.Validate()
			if err == nil {
				t.Fatalf("Validate() error = nil, want error")
			}
			var verr config.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error type = %T, want ValidationError", err)
			}
			for _, want := range tc.want {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Validate() error %q missing %q", err.Error(), want)
				}
			}
		})
	}

	if err := valid().Validate(); err != nil {
		t.Errorf("Validate() on valid config error = %v", err)
	}
}

func TestRetriesUpperBound(t *testing.T) {
	for _, retries := range []int{0, config.MaxRetries} {
		c := *config.Default()
		c.ConfigName = "retries"
		c.BaseURL = "http://localhost:8080"
		c.Retries = retries
		if err := c.Validate(); err != nil {
			t.Errorf("Validate(retries=%d) error = %v", retries, err)
		}
	}
	for _, retries := range []int{config.MaxRetries + 1, 64} {
		c := *config.Default()
		c.ConfigName = "retries"
		c.BaseURL = "http://localhost:8080"
		c.Retries = retries
		if err := c.Validate(); err == nil {
			t.Errorf("Validate(retries=%d) error = nil, want error", retries)
		}
	}
}

func TestZeroRequestsIsValid(t *testing.T) {
	c := *config.Default()
	c.ConfigName = "empty"
	c.ContainerName = "imgproxy"
	c.NumRequests = 0
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestTracingPropagation(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	off := false
	cases := []struct {
		name string
		cfg  config.TracingConfig
		want bool
	}{
		{"disabled", config.TracingConfig{}, false},
		{"enabled default", config.TracingConfig{Endpoint: "localhost:4317"}, true},
		{"explicit off", config.TracingConfig{Endpoint: "localhost:4317", Propagate: &off}, false},
	}
	for _, tc := range cases {
		if got := tc.cfg.ShouldPropagate(); got != tc.want {
			t.Errorf("%s: ShouldPropagate() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestHighLoadWarnings(t *testing.T) {
	c := *config.Default()
	if len(c.Warnings()) != 0 {
		t.Fatalf("Warnings() on defaults = %v, want none", c.Warnings())
	}
	c.Rate = 5000
	c.Concurrency = 1000
	if got := len(c.Warnings()); got != 2 {
		t.Fatalf("Warnings() len = %d, want 2", got)
	}
}
