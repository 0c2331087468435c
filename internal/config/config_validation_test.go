package config

import (
	"strings"
	"testing"

	"github.com/lamim/nlpforge/pkg/models"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string // empty = valid
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:   "blank base url",
			mutate: func(c *Config) { c.Service.BaseURL = "  " },
			want:   "service.base_url is required",
		},
		{
			name:   "negative timeout",
			mutate: func(c *Config) { c.Service.HTTPTimeoutSeconds = -1 },
			want:   "http_timeout_seconds",
		},
		{
			name:   "max retries below -1",
			mutate: func(c *Config) { c.Service.MaxRetries = -2 },
			want:   "max_retries",
		},
		{
			name:   "burst too high",
			mutate: func(c *Config) { c.Service.BurstPercent = 51 },
			want:   "burst_percent",
		},
		{
			name:   "status interval too short",
			mutate: func(c *Config) { c.Polling.StatusIntervalMS = 10 },
			want:   "polling.status_interval_ms",
		},
		{
			name:   "registry interval too long",
			mutate: func(c *Config) { c.Polling.RegistryIntervalMS = MaxPollIntervalMS + 1 },
			want:   "polling.registry_interval_ms",
		},
		{
			name:   "unknown provider",
			mutate: func(c *Config) { c.Wizard.LLMProvider = "gemini" },
			want:   "wizard.llm_provider",
		},
		{
			name:   "unknown home policy",
			mutate: func(c *Config) { c.Wizard.HomePolicy = "keep" },
			want:   "wizard.home_policy",
		},
		{
			name:   "unknown model base",
			mutate: func(c *Config) { c.Training.ModelBase = "bert-large" },
			want:   "training: model_base",
		},
		{
			name:   "split of one",
			mutate: func(c *Config) { c.Training.TrainTestSplit = 1 },
			want:   "train_test_split",
		},
		{
			name:   "multilingual base",
			mutate: func(c *Config) { c.Training.ModelBase = models.ModelDistilBERTMulti },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Service: ServiceConfig{BaseURL: "https://x.example.com", RateLimitPerMinute: 5},
		Polling: PollingConfig{StatusIntervalMS: 250},
	}
	applyDefaults(cfg)

	if cfg.Service.RateLimitPerMinute != 5 {
		t.Errorf("RateLimitPerMinute = %d, want 5", cfg.Service.RateLimitPerMinute)
	}
	if cfg.Polling.StatusIntervalMS != 250 {
		t.Errorf("StatusIntervalMS = %d, want 250", cfg.Polling.StatusIntervalMS)
	}
	if cfg.Service.HTTPTimeout().Seconds() != DefaultHTTPTimeoutSeconds {
		t.Errorf("HTTPTimeout = %v", cfg.Service.HTTPTimeout())
	}
}
