package export

import (
	"fmt"
	"os"
	"path/filepath"
)

// File names used inside a session directory
const (
	EntitiesFilename = "entities.csv"
	IntentsFilename  = "intents.csv"
)

// WriteFile atomically writes CSV text to dir/name and returns the full path
func WriteFile(dir, name, content string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, name)
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write temp export: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("failed to rename export: %w", err)
	}
	return path, nil
}
