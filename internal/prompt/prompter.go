// Package prompt collects user input for the wizard steps.
package prompt

import (
	"context"
	"errors"
)

// ErrAborted is returned when the user abandons a prompt (Ctrl+C or Esc)
var ErrAborted = errors.New("prompt aborted")

// Option is one choice of a Select prompt
type Option struct {
	Key   string
	Label string
}

// Opt builds an Option
func Opt(key, label string) Option {
	return Option{Key: key, Label: label}
}

// Prompter asks the user one question at a time
type Prompter interface {
	// Select returns the Key of the chosen option
	Select(ctx context.Context, title string, options []Option) (string, error)
	// Input reads a single line; validate may be nil
	Input(ctx context.Context, title, initial string, validate func(string) error) (string, error)
	// Text reads multi-line text
	Text(ctx context.Context, title, initial string) (string, error)
	// Confirm asks a yes/no question
	Confirm(ctx context.Context, title string) (bool, error)
}
