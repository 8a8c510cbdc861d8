package domain

import "time"

// ScoringConfig holds the tunable constants of the module scorer and gene
// ranker. Instances are injected at engine construction and never mutated.
type ScoringConfig struct {
	// ExclusionPenalty multiplies the half-weight penalty term applied to
	// excluded phenotypes present in a module.
	ExclusionPenalty float64 `mapstructure:"exclusion_penalty" json:"exclusion_penalty"`
	// StabilityBonus is added to the support score of core genes.
	StabilityBonus float64 `mapstructure:"stability_bonus" json:"stability_bonus"`
	// StabilityPenalty is subtracted from the support score of unstable genes.
	StabilityPenalty float64 `mapstructure:"stability_penalty" json:"stability_penalty"`
}

// DefaultScoringConfig returns the reference scoring constants.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		ExclusionPenalty: 0.5,
		StabilityBonus:   0.1,
		StabilityPenalty: 0.05,
	}
}

// PredictionConfig holds the tunable constants of the phenotype predictor.
type PredictionConfig struct {
	// MinPrevalence is the minimum prevalence percentage a phenotype needs
	// to be surfaced as expected-but-unobserved.
	MinPrevalence float64 `mapstructure:"min_prevalence" json:"min_prevalence"`
	// MaxPredictions caps the missing-phenotype list when the caller does
	// not supply its own limit.
	MaxPredictions int `mapstructure:"max_predictions" json:"max_predictions"`
	// MaxDiscriminative caps the discriminative-question list.
	MaxDiscriminative int `mapstructure:"max_discriminative" json:"max_discriminative"`
}

// DefaultPredictionConfig returns the reference prediction constants.
func DefaultPredictionConfig() PredictionConfig {
	return PredictionConfig{
		MinPrevalence:     20.0,
		MaxPredictions:    10,
		MaxDiscriminative: 5,
	}
}

// Config is the main application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Data       DataConfig       `mapstructure:"data"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Prediction PredictionConfig `mapstructure:"prediction"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// RateLimit is the sustained request rate allowed per client IP.
	RateLimit float64 `mapstructure:"rate_limit"`
	// RateBurst is the per-client token bucket size.
	RateBurst int `mapstructure:"rate_burst"`
}

// DataConfig locates the provider's source tables.
type DataConfig struct {
	// Dir holds the module profile CSVs (module_<id>.csv).
	Dir string `mapstructure:"dir"`
	// GeneFile is the gene classification CSV.
	GeneFile string `mapstructure:"gene_file"`
	// ReviewDBPath is the SQLite file for clinician review records.
	ReviewDBPath string `mapstructure:"review_db_path"`
}

// CacheConfig represents the in-memory query cache configuration.
type CacheConfig struct {
	MaxItems int           `mapstructure:"max_items"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
