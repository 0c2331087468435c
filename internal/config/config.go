package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lamim/nlpforge/internal/wizard"
	"github.com/lamim/nlpforge/pkg/models"
)

// Config represents the complete application configuration
type Config struct {
	Service  ServiceConfig         `toml:"service"`
	Polling  PollingConfig         `toml:"polling"`
	Wizard   WizardConfig          `toml:"wizard"`
	Training models.TrainingConfig `toml:"training"` // Starting values for the training step
}

// ServiceConfig holds settings for the NLP model-building service
type ServiceConfig struct {
	BaseURL            string `toml:"base_url"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`  // HTTP request timeout (default 120, 0 = no timeout)
	MaxRetries         int    `toml:"max_retries"`           // Retries for analyze/generate/presets/health (default 3, -1 = none)
	MaxBackoffSeconds  int    `toml:"max_backoff_seconds"`   // Max backoff between retries (default 30)
	RateLimitPerMinute int    `toml:"rate_limit_per_minute"` // Per-endpoint request budget (default 120)
	BurstPercent       int    `toml:"burst_percent"`         // Burst capacity as percentage (1-50, default: 15)
}

// PollingConfig holds the intervals of the two training-view pollers
type PollingConfig struct {
	StatusIntervalMS   int `toml:"status_interval_ms"`   // Per-job status poll (default 2000)
	RegistryIntervalMS int `toml:"registry_interval_ms"` // Job registry poll (default 3000)
}

// StatusInterval returns the status poll interval as a duration
func (p PollingConfig) StatusInterval() time.Duration {
	return time.Duration(p.StatusIntervalMS) * time.Millisecond
}

// RegistryInterval returns the registry poll interval as a duration
func (p PollingConfig) RegistryInterval() time.Duration {
	return time.Duration(p.RegistryIntervalMS) * time.Millisecond
}

// WizardConfig holds settings for the interactive workflow
type WizardConfig struct {
	LLMProvider models.LLMProvider `toml:"llm_provider"` // openai, claude or qwen (default: claude)
	HomePolicy  wizard.HomePolicy  `toml:"home_policy"`  // retain or clear (default: retain)
	OutputDir   string             `toml:"output_dir"`   // Parent of session directories (default: output)
}

// Secrets holds sensitive credentials loaded from environment variables
type Secrets struct {
	APIToken string
}

const (
	// MinPollIntervalMS is the shortest allowed poll interval
	MinPollIntervalMS = 100
	// MaxPollIntervalMS is the longest allowed poll interval
	MaxPollIntervalMS = 10 * 60 * 1000

	// EnvAPIURL overrides service.base_url
	EnvAPIURL = "NLPFORGE_API_URL"
	// EnvAPIToken is sent as a bearer token when set
	EnvAPIToken = "NLPFORGE_API_TOKEN"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Service.BaseURL) == "" {
		return fmt.Errorf("service.base_url is required")
	}
	if c.Service.HTTPTimeoutSeconds < 0 {
		return fmt.Errorf("service.http_timeout_seconds must not be negative (got %d)", c.Service.HTTPTimeoutSeconds)
	}
	if c.Service.MaxRetries < -1 {
		return fmt.Errorf("service.max_retries must be -1 or greater (got %d)", c.Service.MaxRetries)
	}
	if c.Service.MaxBackoffSeconds < 1 {
		return fmt.Errorf("service.max_backoff_seconds must be at least 1")
	}
	if c.Service.RateLimitPerMinute < 1 {
		return fmt.Errorf("service.rate_limit_per_minute must be at least 1")
	}
	if c.Service.BurstPercent < 1 || c.Service.BurstPercent > 50 {
		return fmt.Errorf("service.burst_percent must be between 1 and 50 (got %d)", c.Service.BurstPercent)
	}

	if err := validateInterval("polling.status_interval_ms", c.Polling.StatusIntervalMS); err != nil {
		return err
	}
	if err := validateInterval("polling.registry_interval_ms", c.Polling.RegistryIntervalMS); err != nil {
		return err
	}

	if !c.Wizard.LLMProvider.Valid() {
		return fmt.Errorf("wizard.llm_provider must be one of %v (got %q)", models.Providers, c.Wizard.LLMProvider)
	}
	if !c.Wizard.HomePolicy.Valid() {
		return fmt.Errorf("wizard.home_policy must be %q or %q (got %q)", wizard.HomeRetain, wizard.HomeClear, c.Wizard.HomePolicy)
	}
	if strings.TrimSpace(c.Wizard.OutputDir) == "" {
		return fmt.Errorf("wizard.output_dir is required")
	}

	if err := c.Training.Validate(); err != nil {
		return fmt.Errorf("training: %w", err)
	}

	return nil
}

func validateInterval(name string, ms int) error {
	if ms < MinPollIntervalMS || ms > MaxPollIntervalMS {
		return fmt.Errorf("%s must be between %d and %d (got %d)", name, MinPollIntervalMS, MaxPollIntervalMS, ms)
	}
	return nil
}

// LoadSecrets loads sensitive credentials from environment variables
func LoadSecrets() (*Secrets, error) {
	return &Secrets{
		APIToken: strings.TrimSpace(os.Getenv(EnvAPIToken)),
	}, nil
}

// HTTPTimeout returns the configured client timeout
func (s ServiceConfig) HTTPTimeout() time.Duration {
	return time.Duration(s.HTTPTimeoutSeconds) * time.Second
}

// MaxBackoff returns the configured retry backoff ceiling
func (s ServiceConfig) MaxBackoff() time.Duration {
	return time.Duration(s.MaxBackoffSeconds) * time.Second
}
