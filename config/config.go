// Package config holds the YAML configuration for the seqmon tool.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Zap log level for bridge and guest logging.
	LogLevel string `json:"log_level"`
	// Period of table snapshot refreshes in interactive mode.
	RefreshInterval_ms uint64 `json:"refresh_interval"`
	// Number of tracked refnums above which the table is reported as a
	// suspected leak. 0 disables the check.
	LeakThreshold int `json:"leak_threshold"`

	// Parsed log level
	level zapcore.Level
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:           "info",
		RefreshInterval_ms: 500,
		LeakThreshold:      0,
	}
}

// Parse validates the configuration and resolves derived fields.
func (c *Config) Parse() error {
	if c.RefreshInterval_ms == 0 {
		return fmt.Errorf("refresh_interval must be positive")
	}
	if c.LeakThreshold < 0 {
		return fmt.Errorf("leak_threshold must not be negative")
	}

	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	c.level = level
	return nil
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshInterval_ms) * time.Millisecond
}

func (c *Config) Level() zapcore.Level {
	return c.level
}

// ReadFile loads and parses a YAML configuration file.
func ReadFile(file string) (*Config, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open configuration file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f, yaml.Strict())
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration file: %w", err)
	}

	if err := cfg.Parse(); err != nil {
		return nil, err
	}
	return cfg, nil
}
