package config

import (
	"os"
	"path/filepath"
	"testing"
)

// BenchmarkLoad benchmarks config loading
func BenchmarkLoad(b *testing.B) {
	// Create a temporary config file
	tempDir := b.TempDir()
	configPath := filepath.Join(tempDir, "config.toml")

	configContent := `
[service]
base_url = "https://nlp.example.com"
http_timeout_seconds = 60
rate_limit_per_minute = 90

[polling]
status_interval_ms = 1500
registry_interval_ms = 3000

[wizard]
llm_provider = "openai"
output_dir = "runs"

[training]
model_base = "distilbert-base-cased"
epochs = 4
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, err := Load(configPath)
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkValidate benchmarks config validation
func BenchmarkValidate(b *testing.B) {
	cfg := Default()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := cfg.Validate(); err != nil {
			b.Fatal(err)
		}
	}
}
