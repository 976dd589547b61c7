// Package config provides configuration management for the screening server.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for SQLite files and exports

	// Classifier settings
	ModelPath         string        // Optional: path to a logistic model artifact
	ClassifierTimeout time.Duration // Per-call inference timeout

	// Cache settings
	CacheMaxItems int // Maximum items in the classifier result cache

	// Report settings
	ReportBase string // Base URL for report links

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".tarang")

	return &LiteConfig{
		DataDir:           dataDir,
		ClassifierTimeout: 2 * time.Second,
		CacheMaxItems:     1000,
		ReportBase:        "http://localhost:8080",
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("TARANG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	cfg.ModelPath = os.Getenv("TARANG_MODEL_PATH")
	if v := os.Getenv("TARANG_CLASSIFIER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ClassifierTimeout = d
		}
	}

	if v := os.Getenv("TARANG_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}

	if v := os.Getenv("TARANG_REPORT_BASE"); v != "" {
		cfg.ReportBase = v
	}

	if v := os.Getenv("TARANG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TARANG_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// ScreeningDBPath returns the path to the sessions and progress SQLite database.
func (c *LiteConfig) ScreeningDBPath() string {
	return filepath.Join(c.DataDir, "screening.db")
}

// ReviewDBPath returns the path to the clinician review SQLite database.
func (c *LiteConfig) ReviewDBPath() string {
	return filepath.Join(c.DataDir, "reviews.db")
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
