package config

import (
	"fmt"
	"net/url"
	"unicode"
)

const (
	// MaxBaseURLLength is the maximum allowed length for the service URL
	MaxBaseURLLength = 2048

	// MaxOutputDirLength is the maximum allowed length for the output directory
	MaxOutputDirLength = 1024
)

// ValidateInputs performs additional security validation on user-controllable fields.
func (c *Config) ValidateInputs() error {
	if err := validateBaseURL(c.Service.BaseURL); err != nil {
		return err
	}

	if len(c.Wizard.OutputDir) > MaxOutputDirLength {
		return fmt.Errorf("wizard.output_dir exceeds maximum length of %d (got %d)",
			MaxOutputDirLength, len(c.Wizard.OutputDir))
	}
	if containsControlChars(c.Wizard.OutputDir) {
		return fmt.Errorf("wizard.output_dir contains invalid control characters")
	}

	return nil
}

// validateBaseURL checks that the base URL is properly formatted and safe
func validateBaseURL(baseURL string) error {
	if len(baseURL) > MaxBaseURLLength {
		return fmt.Errorf("service.base_url exceeds maximum length of %d (got %d)",
			MaxBaseURLLength, len(baseURL))
	}

	// Parse URL
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("service.base_url is invalid: %w", err)
	}

	// Check scheme
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("service.base_url must use http or https scheme (got %s)", u.Scheme)
	}

	// Check host is present
	if u.Host == "" {
		return fmt.Errorf("service.base_url must have a host")
	}

	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("service.base_url must not carry a query or fragment")
	}

	return nil
}

// containsControlChars checks if a string contains control characters
// (excluding newlines, tabs, and carriage returns which are acceptable)
func containsControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return true
		}
	}
	return false
}
