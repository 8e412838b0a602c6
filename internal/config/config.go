// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

// Package config holds the layered configuration for Territorium.
//
// Precedence: environment variables > config file (yaml) > built-in defaults.
// Loading is done with koanf v2; see koanf.go.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Engine   EngineConfig   `koanf:"engine"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig configures the DuckDB spatial store.
type DatabaseConfig struct {
	// Path is the DuckDB database file, or ":memory:".
	Path string `koanf:"path" validate:"required"`

	// MaxMemory caps DuckDB memory usage (DuckDB size notation, e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 = runtime.NumCPU().
	Threads int `koanf:"threads" validate:"min=0"`
}

// EngineConfig configures the aggregation and prioritization engine.
type EngineConfig struct {
	// ServingSRID is the CRS all geometries are stored and returned in.
	// Changing it invalidates the cache.
	ServingSRID int `koanf:"serving_srid" validate:"required,min=1"`

	// CacheTTL bounds how long memoized aggregations stay valid.
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"min=0"`

	// CacheCapacity bounds the number of memoized entries (LRU beyond that).
	CacheCapacity int `koanf:"cache_capacity" validate:"min=1"`

	// PrioritizationBudget is the default bound on suggested activities
	// across all pairs in one prioritization call.
	PrioritizationBudget int `koanf:"prioritization_budget" validate:"min=0"`

	// SuggestionCap bounds suggested activities per pair. The historical
	// pipeline hard-coded 1; kept configurable.
	SuggestionCap int `koanf:"suggestion_cap" validate:"min=1"`

	// EfficiencyThreshold is the attendees-per-activity floor under which the
	// outreach recommendation fires.
	EfficiencyThreshold float64 `koanf:"efficiency_threshold" validate:"min=0"`

	// DiversityThreshold is the distinct-category floor under which the
	// diversification recommendation fires.
	DiversityThreshold int `koanf:"diversity_threshold" validate:"min=0"`
}

// ServerConfig configures the geoportal HTTP surface.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"min=0"`
}

// LoggingConfig mirrors logging.Config for file/env control.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied.
// Defaults load first, then file, then environment.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      "/data/territorium.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Engine: EngineConfig{
			ServingSRID:          4326,
			CacheTTL:             30 * time.Minute,
			CacheCapacity:        4096,
			PrioritizationBudget: 200,
			SuggestionCap:        1,
			EfficiencyThreshold:  20,
			DiversityThreshold:   3,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8787,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// validate is the package-level validator instance; validator caches struct
// metadata, so a single instance is reused.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration against the struct tags above.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}
