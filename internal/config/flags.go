package config

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers the benchmark flags on a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

func configureFlags(flags *pflag.FlagSet) {
	// Target
	flags.String("url", "", "Base URL of the image service (overrides container lookup)")
	flags.String("container-name", "", "Docker container running the image service")
	flags.Int("port", DefaultPort, "Local port used when the container cannot be inspected")
	flags.Int("container-port", DefaultContainerPort, "Container port whose host binding is used")
	flags.String("test-image", DefaultTestImage, "Image name requested on every call")
	flags.String("transform", DefaultTransform, "Transformation string placed in the request path")

	// Load
	flags.IntP("num-requests", "n", DefaultNumRequests, "Total number of requests to send")
	flags.IntP("concurrency", "c", DefaultConcurrency, "Number of concurrent workers")
	flags.IntP("rate", "r", 0, "Requests per second limit (0 means unlimited)")
	flags.Duration("timeout", DefaultTimeout, "Per-attempt timeout")
	flags.Int("retries", DefaultRetries, "Retries for 429 and 5xx gateway responses (0-10)")
	flags.Duration("backoff", DefaultBackoff, "Backoff factor; retry n waits backoff * 2^(n-1), at most 120s")

	// Output
	flags.String("config-name", "", "Label stored with the benchmark run")
	flags.StringP("output", "o", DefaultOutput, "Results file the run is appended to")
	flags.Bool("json-output", false, "Emit the run as JSON instead of a text summary")
	flags.Bool("log-errors", false, "Log each failed request to stderr")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.String("html-output", "", "Write an HTML chart report of the results file")
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g., 'http_req_duration:p95 < 500')")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.String("tracing-service-name", "", "Service name reported on spans")
	flags.Bool("tracing-insecure", false, "Disable TLS to the OTLP collector")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of requests traced (0.0-1.0)")
	flags.Bool("tracing-propagate", true, "Send W3C traceparent headers with each request")
}

// applyFlagOverrides copies explicitly set flags over file settings.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	o := flagOverrides{fs: fs}

	o.str("url", &cfg.BaseURL)
	o.str("container-name", &cfg.ContainerName)
	o.integer("port", &cfg.Port)
	o.integer("container-port", &cfg.ContainerPort)
	o.str("test-image", &cfg.TestImage)
	o.str("transform", &cfg.Transform)

	o.integer("num-requests", &cfg.NumRequests)
	o.integer("concurrency", &cfg.Concurrency)
	o.integer("rate", &cfg.Rate)
	o.duration("timeout", &cfg.Timeout)
	o.integer("retries", &cfg.Retries)
	o.duration("backoff", &cfg.Backoff)

	o.str("config-name", &cfg.ConfigName)
	o.str("output", &cfg.Output)
	o.boolean("json-output", &cfg.JSONOutput)
	o.boolean("log-errors", &cfg.LogErrors)
	o.str("log-level", &cfg.LogLevel)
	o.str("html-output", &cfg.HTMLOutput)
	if fs.Changed("threshold") {
		vals, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = append(cfg.Thresholds, vals...)
	}

	o.str("tracing-endpoint", &cfg.Tracing.Endpoint)
	o.str("tracing-protocol", &cfg.Tracing.Protocol)
	o.str("tracing-service-name", &cfg.Tracing.ServiceName)
	o.boolean("tracing-insecure", &cfg.Tracing.Insecure)
	o.float("tracing-sample-rate", &cfg.Tracing.SampleRate)
	if fs.Changed("tracing-propagate") {
		v, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = &v
	}

	return o.err
}

type flagOverrides struct {
	fs  *pflag.FlagSet
	err error
}

func (o *flagOverrides) changed(name string) bool {
	return o.err == nil && o.fs.Lookup(name) != nil && o.fs.Changed(name)
}

func (o *flagOverrides) str(name string, dst *string) {
	if !o.changed(name) {
		return
	}
	v, err := o.fs.GetString(name)
	if err != nil {
		o.err = err
		return
	}
	*dst = strings.TrimSpace(v)
}

func (o *flagOverrides) integer(name string, dst *int) {
	if !o.changed(name) {
		return
	}
	v, err := o.fs.GetInt(name)
	if err != nil {
		o.err = err
		return
	}
	*dst = v
}

func (o *flagOverrides) float(name string, dst *float64) {
	if !o.changed(name) {
		return
	}
	v, err := o.fs.GetFloat64(name)
	if err != nil {
		o.err = err
		return
	}
	*dst = v
}

func (o *flagOverrides) boolean(name string, dst *bool) {
	if !o.changed(name) {
		return
	}
	v, err := o.fs.GetBool(name)
	if err != nil {
		o.err = err
		return
	}
	*dst = v
}

func (o *flagOverrides) duration(name string, dst *time.Duration) {
	if !o.changed(name) {
		return
	}
	v, err := o.fs.GetDuration(name)
	if err != nil {
		o.err = err
		return
	}
	*dst = v
}
