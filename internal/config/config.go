// Package config loads and validates the yaml configuration for qdt.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"qdt/internal/logging"
	"qdt/internal/source"
)

// Config is the top-level configuration.
type Config struct {
	Source  source.Config `yaml:"source"`
	Dump    DumpConfig    `yaml:"dump"`
	Search  SearchConfig  `yaml:"search"`
	Logging LoggingConfig `yaml:"logging"`
}

// DumpConfig configures the dump command.
type DumpConfig struct {
	Table       string   `yaml:"table,omitempty"`
	Output      string   `yaml:"output,omitempty"`
	PartitionBy []string `yaml:"partition_by,omitempty"`
	OrderBy     []string `yaml:"order_by,omitempty"`
	ChunkSize   int      `yaml:"chunk_size,omitempty"`
}

// SearchConfig configures the search command. Timeout is a duration
// string ("1h", "30m") applied per task.
type SearchConfig struct {
	FromTS       int64    `yaml:"from_ts,omitempty"`
	ToTS         int64    `yaml:"to_ts,omitempty"`
	MarketType   string   `yaml:"market_type,omitempty"`
	Symbol       string   `yaml:"symbol,omitempty"`
	DataTypes    []string `yaml:"data_types,omitempty"`
	Intervals    []string `yaml:"intervals,omitempty"`
	WindowSizes  []int    `yaml:"window_sizes,omitempty"`
	StepMS       []int    `yaml:"step_ms,omitempty"`
	ForwardSteps []int    `yaml:"forward_steps,omitempty"`
	PlatformPath string   `yaml:"platform_path,omitempty"`
	Output       string   `yaml:"output,omitempty"`
	Workers      int      `yaml:"workers,omitempty"`
	Timeout      string   `yaml:"timeout,omitempty"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Load reads the configuration file at path, applies environment
// overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with only environment overrides
// and defaults applied, for fully flag-driven runs without a config file.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg
}

// applyEnvOverrides lets connection details come from the environment so
// credentials can stay out of config files.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("QDT_SOURCE_HOST"); v != "" {
		c.Source.Host = v
	}
	if v := os.Getenv("QDT_SOURCE_USER"); v != "" {
		c.Source.User = v
	}
	if v := os.Getenv("QDT_SOURCE_PASSWORD"); v != "" {
		c.Source.Password = v
	}
}

func (c *Config) applyDefaults() {
	if c.Dump.ChunkSize == 0 {
		c.Dump.ChunkSize = 100000
	}

	s := &c.Search
	if s.FromTS == 0 {
		s.FromTS = 1609430400000 // 2021-01-01
	}
	if s.ToTS == 0 {
		s.ToTS = 1761926400000 // 2025-11-01
	}
	if s.MarketType == "" {
		s.MarketType = "binance_spot"
	}
	if s.Symbol == "" {
		s.Symbol = "BTCUSDT"
	}
	if len(s.DataTypes) == 0 {
		s.DataTypes = []string{"kline", "trade"}
	}
	if len(s.Intervals) == 0 {
		s.Intervals = []string{"1m"}
	}
	if len(s.WindowSizes) == 0 {
		s.WindowSizes = []int{10, 30, 60, 120}
	}
	if len(s.StepMS) == 0 {
		s.StepMS = []int{60000}
	}
	if len(s.ForwardSteps) == 0 {
		s.ForwardSteps = []int{1, 3, 5, 10, 30, 60}
	}
	if s.PlatformPath == "" {
		s.PlatformPath = "./platform/target/release/platform"
	}
	if s.Output == "" {
		s.Output = "factor_ic_results.csv"
	}
	if s.Workers == 0 {
		s.Workers = 1
	}
	if s.Timeout == "" {
		s.Timeout = "1h"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Source.Type != "" && !source.Supported(c.Source.Type) {
		return fmt.Errorf("unknown source type %q (available: %s)",
			c.Source.Type, strings.Join(source.Engines(), ", "))
	}
	if c.Dump.ChunkSize <= 0 {
		return fmt.Errorf("dump.chunk_size must be positive, got %d", c.Dump.ChunkSize)
	}

	s := c.Search
	if s.FromTS >= s.ToTS {
		return fmt.Errorf("search.from_ts %d must be before search.to_ts %d", s.FromTS, s.ToTS)
	}
	for _, dt := range s.DataTypes {
		if dt != "kline" && dt != "trade" {
			return fmt.Errorf("search.data_types entry %q must be kline or trade", dt)
		}
	}
	if err := allPositive("search.window_sizes", s.WindowSizes); err != nil {
		return err
	}
	if err := allPositive("search.step_ms", s.StepMS); err != nil {
		return err
	}
	if err := allPositive("search.forward_steps", s.ForwardSteps); err != nil {
		return err
	}
	if s.Workers < 1 {
		return fmt.Errorf("search.workers must be at least 1, got %d", s.Workers)
	}
	if _, err := time.ParseDuration(s.Timeout); err != nil {
		return fmt.Errorf("search.timeout: %w", err)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// TaskTimeout returns the parsed per-task search timeout. Validate has
// already checked it parses.
func (c *Config) TaskTimeout() time.Duration {
	d, err := time.ParseDuration(c.Search.Timeout)
	if err != nil {
		return time.Hour
	}
	return d
}

func allPositive(name string, vals []int) error {
	for _, v := range vals {
		if v <= 0 {
			return fmt.Errorf("%s entries must be positive, got %d", name, v)
		}
	}
	return nil
}
