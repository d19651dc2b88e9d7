// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.Server.Port != 8420 {
		t.Errorf("server port = %d, want 8420", cfg.Server.Port)
	}
	if cfg.Database.Host != "localhost" || cfg.Database.Database != "gust" {
		t.Errorf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.NATS.Enabled {
		t.Error("nats should be disabled by default")
	}
	if cfg.Scheduler.RetentionInterval != time.Hour {
		t.Errorf("retention interval = %v, want 1h", cfg.Scheduler.RetentionInterval)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log:
  level: debug
server:
  port: 9000
database:
  host: db.internal
  database: telemetry
nats:
  enabled: true
  url: nats://broker:4222
scheduler:
  retention_interval: 30m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("server port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Database != "telemetry" {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	if !cfg.NATS.Enabled || cfg.NATS.URL != "nats://broker:4222" {
		t.Errorf("unexpected nats config: %+v", cfg.NATS)
	}
	if cfg.Scheduler.RetentionInterval != 30*time.Minute {
		t.Errorf("retention interval = %v, want 30m", cfg.Scheduler.RetentionInterval)
	}
	// Untouched fields keep their defaults.
	if cfg.Log.Format != "json" {
		t.Errorf("log format = %q, want json", cfg.Log.Format)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("GUST_LOG_LEVEL", "warn")
	t.Setenv("GUST_HTTP_PORT", "7777")
	t.Setenv("GUST_DB_HOST", "pg.internal")
	t.Setenv("GUST_DB_PASSWORD", "hunter2")
	t.Setenv("GUST_NATS_URL", "nats://env:4222")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q, want warn", cfg.Log.Level)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("server port = %d, want 7777", cfg.Server.Port)
	}
	if cfg.Database.Host != "pg.internal" {
		t.Errorf("db host = %q, want pg.internal", cfg.Database.Host)
	}
	if cfg.Database.Password != "hunter2" {
		t.Errorf("db password not applied")
	}
	if !cfg.NATS.Enabled {
		t.Error("setting GUST_NATS_URL should enable nats")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"missing db host", func(c *Config) { c.Database.Host = "" }, true},
		{"missing db name", func(c *Config) { c.Database.Database = "" }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
