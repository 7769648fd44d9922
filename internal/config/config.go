// Package config provides configuration management for tablebench runs
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // results timestamps need zone data on hosts without a zoneinfo database

	"gopkg.in/yaml.v3"
)

// Results layouts
const (
	LayoutStandard = "standard"
	LayoutEngine   = "engine"
)

// Failure policies for a batch of benchmarks
const (
	OnErrorContinue = "continue"
	OnErrorAbort    = "abort"
)

// Default configuration values
const (
	DefaultIterations  = 1
	DefaultGCWarnRatio = 0.25
	DefaultTimezone    = "America/New_York"
	DefaultTag         = "no-nulls-100m"
)

// Config represents the configuration of a benchmark batch
type Config struct {
	// Output
	Layout         string `json:"layout" yaml:"layout"`                     // standard or engine
	ResultsFile    string `json:"results_file" yaml:"results_file"`         // Empty = layout default under <prefix>/data
	ProcessInfoDir string `json:"process_info_dir" yaml:"process_info_dir"` // Empty = <prefix>/data
	Timezone       string `json:"timezone" yaml:"timezone"`                 // Local timestamp column zone
	MetricsFile    string `json:"metrics_file" yaml:"metrics_file"`         // Prometheus textfile output (empty = disabled)
	MetricsAddr    string `json:"metrics_addr" yaml:"metrics_addr"`         // Serve /metrics while running (empty = disabled)

	// Execution
	Iterations  int     `json:"iterations" yaml:"iterations"`       // Repetitions per benchmark file
	OnError     string  `json:"on_error" yaml:"on_error"`           // continue or abort
	GCWarnRatio float64 `json:"gc_warn_ratio" yaml:"gc_warn_ratio"` // gc_seconds/elapsed ratio that flags contamination
	Tag         string  `json:"tag" yaml:"tag"`                     // Dataset tag handed to benchmark factories

	// Debugging
	Verbose bool `json:"verbose" yaml:"verbose"` // Enable debug logging
	Report  bool `json:"report" yaml:"report"`   // Print a markdown report after the batch
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		Layout:      LayoutStandard,
		Timezone:    DefaultTimezone,
		Iterations:  DefaultIterations,
		OnError:     OnErrorContinue,
		GCWarnRatio: DefaultGCWarnRatio,
		Tag:         DefaultTag,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.Layout != LayoutStandard && c.Layout != LayoutEngine {
		return fmt.Errorf("Layout must be %q or %q, got %q", LayoutStandard, LayoutEngine, c.Layout)
	}

	if c.Iterations <= 0 {
		return fmt.Errorf("Iterations must be positive, got %d", c.Iterations)
	}

	if c.OnError != OnErrorContinue && c.OnError != OnErrorAbort {
		return fmt.Errorf("OnError must be %q or %q, got %q", OnErrorContinue, OnErrorAbort, c.OnError)
	}

	if c.GCWarnRatio <= 0.0 {
		return fmt.Errorf("GCWarnRatio must be positive, got %f", c.GCWarnRatio)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("Timezone %q is not a known location: %w", c.Timezone, err)
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.Layout == "" {
		c.Layout = defaults.Layout
	}
	if c.Timezone == "" {
		c.Timezone = defaults.Timezone
	}
	if c.Iterations == 0 {
		c.Iterations = defaults.Iterations
	}
	if c.OnError == "" {
		c.OnError = defaults.OnError
	}
	if c.GCWarnRatio == 0.0 {
		c.GCWarnRatio = defaults.GCWarnRatio
	}
	if c.Tag == "" {
		c.Tag = defaults.Tag
	}

	return c
}

// ResultsPath returns the results file for the given output prefix, honoring the layout default.
func (c Config) ResultsPath(outputPrefixPath string) string {
	if c.ResultsFile != "" {
		return c.ResultsFile
	}
	name := "pyarrow-bench-results.csv"
	if c.Layout == LayoutEngine {
		name = "bench-results.csv"
	}
	return filepath.Join(outputPrefixPath, "data", name)
}

// ProcessInfoPath returns the directory for per-process info files.
func (c Config) ProcessInfoPath(outputPrefixPath string) string {
	if c.ProcessInfoDir != "" {
		return c.ProcessInfoDir
	}
	return filepath.Join(outputPrefixPath, "data")
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a file (supports JSON, YAML)
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		config, err := LoadFromJSON(data)
		if err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", filename, err)
		}
		return config, nil
	case ".yaml", ".yml":
		var config Config
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
		}
		return config.WithDefaults(), nil
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}
}

// LoadFromEnv overlays TABLEBENCH_* environment variables onto base
func LoadFromEnv(base Config) Config {
	return LoadFromEnvWith(base, os.Getenv)
}

// LoadFromEnvWith overlays environment values read through getenv onto base.
// Unparseable values are ignored.
func LoadFromEnvWith(base Config, getenv func(string) string) Config {
	config := base

	if val := getenv("TABLEBENCH_LAYOUT"); val != "" {
		config.Layout = val
	}

	if val := getenv("TABLEBENCH_RESULTS_FILE"); val != "" {
		config.ResultsFile = val
	}

	if val := getenv("TABLEBENCH_PROCESS_INFO_DIR"); val != "" {
		config.ProcessInfoDir = val
	}

	if val := getenv("TABLEBENCH_TIMEZONE"); val != "" {
		config.Timezone = val
	}

	if val := getenv("TABLEBENCH_METRICS_FILE"); val != "" {
		config.MetricsFile = val
	}

	if val := getenv("TABLEBENCH_METRICS_ADDR"); val != "" {
		config.MetricsAddr = val
	}

	if val := getenv("TABLEBENCH_ITERATIONS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.Iterations = parsed
		}
	}

	if val := getenv("TABLEBENCH_ON_ERROR"); val != "" {
		config.OnError = val
	}

	if val := getenv("TABLEBENCH_GC_WARN_RATIO"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.GCWarnRatio = parsed
		}
	}

	if val := getenv("TABLEBENCH_TAG"); val != "" {
		config.Tag = val
	}

	if val := getenv("TABLEBENCH_VERBOSE"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.Verbose = parsed
		}
	}

	if val := getenv("TABLEBENCH_REPORT"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.Report = parsed
		}
	}

	return config
}
