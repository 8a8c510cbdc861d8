// This file contains the lightweight configuration for standalone operation
// of the MCP binary: environment variables only, no config file.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for standalone operation.
type LiteConfig struct {
	// Data tables
	DataDir  string // Directory holding the module profile CSVs
	GeneFile string // Gene classification CSV

	// Cache settings
	CacheMaxItems int
	CacheTTL      time.Duration

	// Review storage
	StateDir string // Directory for the review database

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	stateDir := filepath.Join(homeDir, ".mpv-clinical-demo")

	return &LiteConfig{
		DataDir:       "./data",
		GeneFile:      "./data/genes.csv",
		CacheMaxItems: 1000,
		CacheTTL:      1 * time.Hour,
		StateDir:      stateDir,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("MPV_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("MPV_GENE_FILE"); v != "" {
		cfg.GeneFile = v
	}
	if v := os.Getenv("MPV_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}

	if v := os.Getenv("MPV_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("MPV_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	if v := os.Getenv("MPV_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MPV_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// ReviewDBPath returns the path to the review SQLite database.
func (c *LiteConfig) ReviewDBPath() string {
	return filepath.Join(c.StateDir, "reviews.db")
}

// EnsureStateDir creates the state directory if it doesn't exist.
func (c *LiteConfig) EnsureStateDir() error {
	return os.MkdirAll(c.StateDir, 0755)
}
