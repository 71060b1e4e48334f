// Package config provides configuration management for the GFR server.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pediatric-gfr-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for the evaluation history

	// Cache settings
	CacheMaxItems int           // Maximum reports in memory cache
	CacheTTL      time.Duration // Default cache TTL

	// Engine defaults
	DeclineModel domain.DeclineModel
	GFRFormula   domain.GFRFormula

	// Transport settings
	Transport string // Transport type: stdio, http
	HTTPPort  int    // HTTP port (if transport is http)

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".pediatric-gfr")

	return &LiteConfig{
		DataDir:       dataDir,
		CacheMaxItems: 1000,
		CacheTTL:      time.Hour,
		DeclineModel:  domain.LinearDecline,
		GFRFormula:    domain.HeightOverFixedScr,
		Transport:     "stdio",
		HTTPPort:      8080,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("GFR_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Cache settings
	if v := os.Getenv("GFR_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("GFR_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	// Engine defaults; unknown values are ignored
	if v := domain.DeclineModel(os.Getenv("GFR_DECLINE_MODEL")); v.IsValid() {
		cfg.DeclineModel = v
	}
	if v := domain.GFRFormula(os.Getenv("GFR_FORMULA")); v.IsValid() {
		cfg.GFRFormula = v
	}

	// Transport
	if v := os.Getenv("GFR_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("GFR_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	// Logging
	if v := os.Getenv("GFR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("GFR_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// EngineConfig returns the default engine configuration for lite mode.
func (c *LiteConfig) EngineConfig() domain.EngineConfig {
	cfg := domain.DefaultEngineConfig()
	cfg.DeclineModel = c.DeclineModel
	cfg.GFRFormula = c.GFRFormula
	return cfg
}

// HistoryDBPath returns the path to the evaluation history SQLite database.
func (c *LiteConfig) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "evaluations.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
