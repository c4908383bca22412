// Package config loads the optional YAML run configuration of the bench
// command. Flags set explicitly on the command line take precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"gopkg.in/yaml.v3"

	"poabench/pkg/api"
)

// Config mirrors the bench flags.
type Config struct {
	DatasetsDir   string   `yaml:"datasets_dir"`
	OutputDir     string   `yaml:"output_dir"`
	Algorithms    []string `yaml:"algorithms"`
	Kinds         []string `yaml:"kinds"`
	IncludePrefix string   `yaml:"include_prefix"`
	MaxWorkers    int      `yaml:"max_workers"`
	NoPin         bool     `yaml:"no_pin"`
	WorkerExe     string   `yaml:"worker_exe"`
	Archive       string   `yaml:"archive"`
	MetricsAddr   string   `yaml:"metrics_addr"`
	LogFormat     string   `yaml:"log_format"`
	Quiet         bool     `yaml:"quiet"`
}

// Load reads a YAML config file from the given path and returns the parsed Config.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// validate checks values that do not depend on the algorithm registry.
func (c *Config) validate() error {
	if c.MaxWorkers < 0 {
		return fmt.Errorf("max_workers must be >= 0, got %d", c.MaxWorkers)
	}
	for _, k := range c.Kinds {
		if _, err := api.ParseBenchmarkKind(k); err != nil {
			return err
		}
	}
	if c.MetricsAddr != "" {
		if _, port, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return fmt.Errorf("invalid metrics_addr %q: %w", c.MetricsAddr, err)
		} else if port == "" {
			return fmt.Errorf("invalid metrics_addr %q: port cannot be empty", c.MetricsAddr)
		}
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q", c.LogFormat)
	}
	return nil
}
