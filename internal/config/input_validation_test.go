package config

import (
	"strings"
	"testing"
)

func TestValidateBaseURL_Valid(t *testing.T) {
	tests := []string{
		"http://localhost:8000",
		"https://nlp.example.com",
		"https://nlp.example.com/prefix",
		"http://10.0.0.5:9000",
	}

	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			if err := validateBaseURL(tt); err != nil {
				t.Errorf("validateBaseURL(%q) returned unexpected error: %v", tt, err)
			}
		})
	}
}

func TestValidateBaseURL_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // substring of expected error
	}{
		{
			name:  "no_scheme",
			input: "localhost:8000",
			want:  "http or https",
		},
		{
			name:  "ftp",
			input: "ftp://files.example.com",
			want:  "http or https",
		},
		{
			name:  "no_host",
			input: "http://",
			want:  "must have a host",
		},
		{
			name:  "query",
			input: "http://localhost:8000?debug=1",
			want:  "query or fragment",
		},
		{
			name:  "too_long",
			input: "http://example.com/" + strings.Repeat("a", MaxBaseURLLength),
			want:  "exceeds maximum length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateBaseURL(tt.input)
			if err == nil {
				t.Errorf("validateBaseURL(%q) expected error, got nil", tt.input)
			} else if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("validateBaseURL(%q) error = %v, want substring %q", tt.input, err, tt.want)
			}
		})
	}
}

func TestValidateInputs_OutputDir(t *testing.T) {
	cfg := Default()
	cfg.Wizard.OutputDir = "out\x00put"
	if err := cfg.ValidateInputs(); err == nil || !strings.Contains(err.Error(), "control characters") {
		t.Errorf("ValidateInputs() error = %v, want control character error", err)
	}

	cfg = Default()
	cfg.Wizard.OutputDir = strings.Repeat("d", MaxOutputDirLength+1)
	if err := cfg.ValidateInputs(); err == nil {
		t.Error("ValidateInputs() expected length error, got nil")
	}
}

func TestContainsControlChars(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"plain", false},
		{"line\nbreak\ttab\r", false},
		{"bell\x07", true},
		{"esc\x1b[31m", true},
	}
	for _, tt := range tests {
		if got := containsControlChars(tt.input); got != tt.want {
			t.Errorf("containsControlChars(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
