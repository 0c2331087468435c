package config

import (
	"github.com/lamim/nlpforge/internal/wizard"
	"github.com/lamim/nlpforge/pkg/models"
)

const (
	// DefaultBaseURL is the service address used when neither the file nor the environment sets one
	DefaultBaseURL = "http://localhost:8000"

	DefaultHTTPTimeoutSeconds = 120
	DefaultMaxRetries         = 3
	DefaultMaxBackoffSeconds  = 30
	DefaultRateLimitPerMinute = 120
	DefaultBurstPercent       = 15

	DefaultStatusIntervalMS   = 2000
	DefaultRegistryIntervalMS = 3000

	DefaultOutputDir = "output"
)

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// Service defaults
	if cfg.Service.BaseURL == "" {
		cfg.Service.BaseURL = DefaultBaseURL
	}
	if cfg.Service.HTTPTimeoutSeconds == 0 {
		cfg.Service.HTTPTimeoutSeconds = DefaultHTTPTimeoutSeconds
	}
	// NOTE: In TOML, we can't distinguish 0 from unset, so:
	// - Unset (0) → defaults to 3
	// - Explicitly set to -1 → no retries
	if cfg.Service.MaxRetries == 0 {
		cfg.Service.MaxRetries = DefaultMaxRetries
	}
	if cfg.Service.MaxBackoffSeconds == 0 {
		cfg.Service.MaxBackoffSeconds = DefaultMaxBackoffSeconds
	}
	if cfg.Service.RateLimitPerMinute == 0 {
		cfg.Service.RateLimitPerMinute = DefaultRateLimitPerMinute
	}
	if cfg.Service.BurstPercent == 0 {
		cfg.Service.BurstPercent = DefaultBurstPercent
	}

	// Polling defaults
	if cfg.Polling.StatusIntervalMS == 0 {
		cfg.Polling.StatusIntervalMS = DefaultStatusIntervalMS
	}
	if cfg.Polling.RegistryIntervalMS == 0 {
		cfg.Polling.RegistryIntervalMS = DefaultRegistryIntervalMS
	}

	// Wizard defaults
	if cfg.Wizard.LLMProvider == "" {
		cfg.Wizard.LLMProvider = models.DefaultProvider
	}
	if cfg.Wizard.HomePolicy == "" {
		cfg.Wizard.HomePolicy = wizard.HomeRetain
	}
	if cfg.Wizard.OutputDir == "" {
		cfg.Wizard.OutputDir = DefaultOutputDir
	}

	// Training defaults, field by field so a partial [training] table still works
	def := models.DefaultTrainingConfig()
	if cfg.Training.ModelBase == "" {
		cfg.Training.ModelBase = def.ModelBase
	}
	if cfg.Training.Epochs == 0 {
		cfg.Training.Epochs = def.Epochs
	}
	if cfg.Training.BatchSize == 0 {
		cfg.Training.BatchSize = def.BatchSize
	}
	if cfg.Training.LearningRate == 0 {
		cfg.Training.LearningRate = def.LearningRate
	}
	if cfg.Training.TrainTestSplit == 0 {
		cfg.Training.TrainTestSplit = def.TrainTestSplit
	}
	if cfg.Training.MaxSequenceLength == 0 {
		cfg.Training.MaxSequenceLength = def.MaxSequenceLength
	}
}
