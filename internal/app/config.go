// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

// Package app assembles the telemetry engine: configuration, wiring and
// lifecycle.
package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/api"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/cache"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/ingest"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/repository/postgres"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/storage/volatile"
)

// defaultConfigPaths are tried in order when no --config flag is given.
var defaultConfigPaths = []string{
	"./config.yaml",
	"/etc/gust/config.yaml",
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NATSConfig holds ingest gateway settings.
type NATSConfig struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	Name          string        `yaml:"name"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// ClientConfig converts to the ingest package's connection config.
func (c NATSConfig) ClientConfig() ingest.ClientConfig {
	return ingest.ClientConfig{
		URL:           c.URL,
		Name:          c.Name,
		MaxReconnects: c.MaxReconnects,
		ReconnectWait: c.ReconnectWait,
	}
}

// SchedulerConfig holds maintenance job intervals.
type SchedulerConfig struct {
	RetentionInterval time.Duration `yaml:"retention_interval"`
	VolatileInterval  time.Duration `yaml:"volatile_interval"`
	CacheInterval     time.Duration `yaml:"cache_interval"`
}

// Config is the full engine configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Server    api.Config      `yaml:"server"`
	Database  postgres.Config `yaml:"database"`
	NATS      NATSConfig      `yaml:"nats"`
	Cache     cache.Config    `yaml:"cache"`
	Volatile  volatile.Config `yaml:"volatile"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	natsDefaults := ingest.DefaultClientConfig()
	return &Config{
		Log:      LogConfig{Level: "info", Format: "json"},
		Server:   api.DefaultConfig(),
		Database: postgres.DefaultConfig(),
		NATS: NATSConfig{
			Enabled:       false,
			URL:           natsDefaults.URL,
			Name:          natsDefaults.Name,
			MaxReconnects: natsDefaults.MaxReconnects,
			ReconnectWait: natsDefaults.ReconnectWait,
		},
		Cache:    cache.DefaultConfig(),
		Volatile: volatile.DefaultConfig(),
		Scheduler: SchedulerConfig{
			RetentionInterval: time.Hour,
			VolatileInterval:  5 * time.Minute,
			CacheInterval:     time.Minute,
		},
	}
}

// LoadConfig reads configuration from file and environment. Environment
// variables override file values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		for _, candidate := range defaultConfigPaths {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays GUST_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("GUST_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("GUST_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("GUST_HTTP_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("GUST_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("GUST_DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("GUST_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv("GUST_DB_NAME"); v != "" {
		c.Database.Database = v
	}
	if v := os.Getenv("GUST_DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("GUST_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("GUST_NATS_URL"); v != "" {
		c.NATS.URL = v
		c.NATS.Enabled = true
	}
	if v := os.Getenv("GUST_NATS_ENABLED"); v != "" {
		c.NATS.Enabled = v == "true" || v == "1"
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	return nil
}

// PrintMasked writes the configuration to stdout with secrets hidden.
func (c *Config) PrintMasked() {
	masked := *c
	if masked.Database.Password != "" {
		masked.Database.Password = "********"
	}
	out, err := yaml.Marshal(&masked)
	if err != nil {
		fmt.Printf("failed to render config: %v\n", err)
		return
	}
	fmt.Print(string(out))
}
