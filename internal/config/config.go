package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/torosent/flybench/internal/threshold"
)

const (
	DefaultPort          = 80
	DefaultContainerPort = 80
	DefaultTestImage     = "Rovinj-Croatia.jpg"
	DefaultTransform     = "w_500,h_500,rf_1"
	DefaultNumRequests   = 1000
	DefaultConcurrency   = 10
	DefaultTimeout       = 10 * time.Second
	DefaultRetries       = 2
	DefaultBackoff       = 100 * time.Millisecond
	MaxRetries           = 10
	DefaultOutput        = "benchmark_results.json"
	DefaultLogLevel      = "info"
)

type Config struct {
	BaseURL       string        `mapstructure:"url"`
	ContainerName string        `mapstructure:"container_name"`
	Port          int           `mapstructure:"port"`
	ContainerPort int           `mapstructure:"container_port"`
	TestImage     string        `mapstructure:"test_image"`
	Transform     string        `mapstructure:"transform"`
	NumRequests   int           `mapstructure:"num_requests"`
	Concurrency   int           `mapstructure:"concurrency"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Retries       int           `mapstructure:"retries"`
	Backoff       time.Duration `mapstructure:"backoff"`
	Rate          int           `mapstructure:"rate"`
	Output        string        `mapstructure:"output"`
	ConfigName    string        `mapstructure:"config_name"`
	JSONOutput    bool          `mapstructure:"json_output"`
	LogErrors     bool          `mapstructure:"log_errors"`
	LogLevel      string        `mapstructure:"log_level"`
	HTMLOutput    string        `mapstructure:"html_output"`
	Thresholds    []string      `mapstructure:"thresholds"`
	Tracing       TracingConfig `mapstructure:"tracing"`
	ConfigFile    string        `mapstructure:"-"`
}

// TracingConfig controls the optional OTLP span exporter.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   *bool   `mapstructure:"propagate"` // nil means propagate when enabled
}

// Enabled reports whether an exporter endpoint is configured, directly or via
// OTEL_EXPORTER_OTLP_ENDPOINT.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether W3C trace headers go out with each request.
func (t TracingConfig) ShouldPropagate() bool {
	if !t.Enabled() {
		return false
	}
	if t.Propagate != nil {
		return *t.Propagate
	}
	return true
}

// Default returns a Config populated with the documented defaults.
func Default() *Config {
	return &Config{
		Port:          DefaultPort,
		ContainerPort: DefaultContainerPort,
		TestImage:     DefaultTestImage,
		Transform:     DefaultTransform,
		NumRequests:   DefaultNumRequests,
		Concurrency:   DefaultConcurrency,
		Timeout:       DefaultTimeout,
		Retries:       DefaultRetries,
		Backoff:       DefaultBackoff,
		Output:        DefaultOutput,
		LogLevel:      DefaultLogLevel,
		Tracing:       TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks a run configuration and reports every problem at once.
func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.ConfigName) == "" {
		issues = append(issues, "config name is required (use --help for usage information)")
	}
	if strings.TrimSpace(c.BaseURL) == "" && strings.TrimSpace(c.ContainerName) == "" {
		issues = append(issues, "either url or container name must be provided")
	}
	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.NumRequests < 0 {
		issues = append(issues, "num requests must be >= 0")
	}
	if c.Timeout <= 0 {
		issues = append(issues, "timeout must be > 0")
	}
	if c.Retries < 0 || c.Retries > MaxRetries {
		issues = append(issues, fmt.Sprintf("retries must be between 0 and %d, got %d", MaxRetries, c.Retries))
	}
	if c.Backoff < 0 {
		issues = append(issues, "backoff must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Port < 0 || c.Port > 65535 {
		issues = append(issues, fmt.Sprintf("port %d out of range", c.Port))
	}
	if c.ContainerPort < 0 || c.ContainerPort > 65535 {
		issues = append(issues, fmt.Sprintf("container port %d out of range", c.ContainerPort))
	}
	if strings.TrimSpace(c.Output) == "" {
		issues = append(issues, "output path is required")
	}
	if _, err := threshold.ParseMultiple(c.Thresholds); err != nil {
		issues = append(issues, err.Error())
	}
	issues = append(issues, validateTracing(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateTracing(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}

// Warnings lists non-fatal notices about load large enough to disrupt a
// shared service.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Rate > 1000 {
		warnings = append(warnings, fmt.Sprintf("high rate limit configured (%d RPS); ensure you have authorization to test the target system", c.Rate))
	}
	if c.Concurrency > 500 {
		warnings = append(warnings, fmt.Sprintf("high concurrency configured (%d workers); ensure you have authorization to test the target system", c.Concurrency))
	}
	return warnings
}
