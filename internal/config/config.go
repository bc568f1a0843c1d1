// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads dedupd's configuration through a layered koanf
// stack: struct defaults, an optional YAML file, then environment
// variables, in that precedence order.
package config

import (
	"time"
)

// Config is the root configuration for the dedupd service.
type Config struct {
	Store   StoreConfig   `koanf:"store"`
	Engine  EngineConfig  `koanf:"engine"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// StoreConfig configures the DuckDB-backed document store.
type StoreConfig struct {
	Path         string        `koanf:"path"`
	Threads      int           `koanf:"threads"`
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// EngineConfig configures the dedup engine's runtime knobs.
type EngineConfig struct {
	// Workers is the size of the worker pool draining subject records
	// through Engine.DedupRecord concurrently.
	Workers int `koanf:"workers"`

	// FormatMap is the StaticMapper table: source_id -> format ->
	// canonical format, consumed by the format-veto rule.
	FormatMap map[string]map[string]string `koanf:"format_map"`
}

// LogConfig configures the zerolog-based logging sink.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path:         "dedup.duckdb",
			Threads:      0,
			QueryTimeout: 30 * time.Second,
		},
		Engine: EngineConfig{
			Workers:   4,
			FormatMap: map[string]map[string]string{},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
	}
}
