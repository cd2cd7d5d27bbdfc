// Package config loads the switchboard configuration from a YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither the file nor the environment sets a value.
const (
	DefaultListenAddr  = ":8820"
	DefaultDBPath      = "switchboard.db"
	DefaultCallTimeout = 30 * time.Second

	DefaultRefreshInterval    = 5 * time.Minute
	DefaultRefreshConcurrency = 10
)

type fileConfig struct {
	ListenAddr  string            `yaml:"listen_addr"`
	DBPath      string            `yaml:"db_path"`
	CallTimeout string            `yaml:"call_timeout"`
	Refresh     fileRefreshConfig `yaml:"refresh"`
}

type fileRefreshConfig struct {
	Enabled     *bool  `yaml:"enabled"`
	Interval    string `yaml:"interval"`
	Concurrency int    `yaml:"concurrency"`
}

// Config is the resolved runtime configuration.
type Config struct {
	ListenAddr  string
	DBPath      string
	CallTimeout time.Duration
	Refresh     RefreshConfig
}

// RefreshConfig tunes the auto-refresh scheduler.
type RefreshConfig struct {
	Enabled     bool
	Interval    time.Duration
	Concurrency int
}

// Load reads path (missing file is fine, defaults apply) and then applies
// SWITCHBOARD_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ListenAddr:  DefaultListenAddr,
		DBPath:      DefaultDBPath,
		CallTimeout: DefaultCallTimeout,
		Refresh: RefreshConfig{
			Enabled:     true,
			Interval:    DefaultRefreshInterval,
			Concurrency: DefaultRefreshConcurrency,
		},
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			var fc fileConfig
			if err := yaml.Unmarshal(raw, &fc); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
			if err := cfg.applyFile(fc); err != nil {
				return nil, fmt.Errorf("config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(fc fileConfig) error {
	if fc.ListenAddr != "" {
		c.ListenAddr = fc.ListenAddr
	}
	if fc.DBPath != "" {
		c.DBPath = fc.DBPath
	}
	if fc.CallTimeout != "" {
		d, err := time.ParseDuration(fc.CallTimeout)
		if err != nil {
			return fmt.Errorf("invalid call_timeout: %w", err)
		}
		c.CallTimeout = d
	}
	if fc.Refresh.Enabled != nil {
		c.Refresh.Enabled = *fc.Refresh.Enabled
	}
	if fc.Refresh.Interval != "" {
		d, err := time.ParseDuration(fc.Refresh.Interval)
		if err != nil {
			return fmt.Errorf("invalid refresh.interval: %w", err)
		}
		c.Refresh.Interval = d
	}
	if fc.Refresh.Concurrency > 0 {
		c.Refresh.Concurrency = fc.Refresh.Concurrency
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SWITCHBOARD_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("SWITCHBOARD_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("SWITCHBOARD_CALL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SWITCHBOARD_CALL_TIMEOUT: %w", err)
		}
		c.CallTimeout = d
	}
	if v := os.Getenv("SWITCHBOARD_REFRESH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SWITCHBOARD_REFRESH_ENABLED: %w", err)
		}
		c.Refresh.Enabled = enabled
	}
	if v := os.Getenv("SWITCHBOARD_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SWITCHBOARD_REFRESH_INTERVAL: %w", err)
		}
		c.Refresh.Interval = d
	}
	if v := os.Getenv("SWITCHBOARD_REFRESH_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid SWITCHBOARD_REFRESH_CONCURRENCY: %q", v)
		}
		c.Refresh.Concurrency = n
	}
	return nil
}
