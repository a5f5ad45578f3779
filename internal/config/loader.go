package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// FromFlags builds a Config from an already parsed flag set, typically the one
// cobra parsed for the run command. Defaults come first, then the file named
// by --config, then explicitly set flags.
func (Loader) FromFlags(fs *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	if f := fs.Lookup("config"); f != nil {
		cfg.ConfigFile = f.Value.String()
	}
	if cfg.ConfigFile != "" {
		v := viper.New()
		v.SetConfigFile(cfg.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfg.ConfigFile, err)
		}
		if err := applyConfigSettings(cfg, v.AllSettings()); err != nil {
			return nil, fmt.Errorf("config %s: %w", cfg.ConfigFile, err)
		}
	}

	if err := applyFlagOverrides(cfg, fs); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}
	s := newFileSettings(settings)

	s.str("url", &cfg.BaseURL)
	s.str("container_name", &cfg.ContainerName)
	s.integer("port", &cfg.Port)
	s.integer("container_port", &cfg.ContainerPort)
	s.str("test_image", &cfg.TestImage)
	s.str("transform", &cfg.Transform)

	s.integer("num_requests", &cfg.NumRequests)
	s.integer("concurrency", &cfg.Concurrency)
	s.integer("rate", &cfg.Rate)
	s.duration("timeout", &cfg.Timeout)
	s.integer("retries", &cfg.Retries)
	s.duration("backoff", &cfg.Backoff)

	s.str("config_name", &cfg.ConfigName)
	s.str("output", &cfg.Output)
	s.boolean("json_output", &cfg.JSONOutput)
	s.boolean("log_errors", &cfg.LogErrors)
	s.str("log_level", &cfg.LogLevel)
	s.str("html_output", &cfg.HTMLOutput)
	s.list("thresholds", &cfg.Thresholds)

	tracing := s.section("tracing")
	tracing.str("endpoint", &cfg.Tracing.Endpoint)
	tracing.str("protocol", &cfg.Tracing.Protocol)
	tracing.str("service_name", &cfg.Tracing.ServiceName)
	tracing.boolean("insecure", &cfg.Tracing.Insecure)
	tracing.float("sample_rate", &cfg.Tracing.SampleRate)
	tracing.optionalBool("propagate", &cfg.Tracing.Propagate)

	if s.err != nil {
		return s.err
	}
	if tracing.err != nil {
		return fmt.Errorf("tracing.%w", tracing.err)
	}
	return nil
}
