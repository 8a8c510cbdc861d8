// Package config provides configuration management for the MPV engine.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/domain"
)

// Manager loads and validates the application configuration using Viper.
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from file, environment, and defaults.
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/mpv-clinical-demo/")

	viper.SetEnvPrefix("MPV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars suffice.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values.
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.rate_limit", 20.0)
	viper.SetDefault("server.rate_burst", 40)

	// Data defaults
	viper.SetDefault("data.dir", "./data")
	viper.SetDefault("data.gene_file", "./data/genes.csv")
	viper.SetDefault("data.review_db_path", "./data/reviews.db")

	// Scoring defaults
	viper.SetDefault("scoring.exclusion_penalty", 0.5)
	viper.SetDefault("scoring.stability_bonus", 0.1)
	viper.SetDefault("scoring.stability_penalty", 0.05)

	// Prediction defaults
	viper.SetDefault("prediction.min_prevalence", 20.0)
	viper.SetDefault("prediction.max_predictions", 10)
	viper.SetDefault("prediction.max_discriminative", 5)

	// Cache defaults
	viper.SetDefault("cache.max_items", 1000)
	viper.SetDefault("cache.ttl", "1h")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration.
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetDataConfig returns data source configuration.
func (m *Manager) GetDataConfig() *domain.DataConfig {
	return &m.config.Data
}

// Reload reloads the configuration.
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration.
func (m *Manager) Validate() error {
	c := m.config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir must not be empty")
	}
	if c.Data.GeneFile == "" {
		return fmt.Errorf("data.gene_file must not be empty")
	}
	if c.Scoring.ExclusionPenalty < 0 {
		return fmt.Errorf("scoring.exclusion_penalty must not be negative")
	}
	if c.Prediction.MinPrevalence < 0 || c.Prediction.MinPrevalence > 100 {
		return fmt.Errorf("prediction.min_prevalence must be within [0,100]")
	}
	if c.Prediction.MaxPredictions <= 0 {
		return fmt.Errorf("prediction.max_predictions must be positive")
	}
	if c.Cache.MaxItems < 0 {
		return fmt.Errorf("cache.max_items must not be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	return nil
}
