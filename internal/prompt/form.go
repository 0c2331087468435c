package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// Form implements Prompter with huh forms
type Form struct {
	in         io.Reader
	out        io.Writer
	accessible bool
}

var _ Prompter = (*Form)(nil)

// NewForm creates a huh-backed prompter. Non-TTY input (pipes, tests)
// switches the forms to accessible mode, which reads plain lines.
func NewForm(in io.Reader, out io.Writer) *Form {
	f := &Form{in: in, out: out}
	if file, ok := in.(*os.File); !ok || !term.IsTerminal(int(file.Fd())) {
		f.accessible = true
	}
	return f
}

// Interactive reports whether the input is a terminal
func (f *Form) Interactive() bool {
	return !f.accessible
}

func (f *Form) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithInput(f.in).
		WithOutput(f.out).
		WithShowHelp(false).
		WithAccessible(f.accessible)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

// Select shows a single-choice menu
func (f *Form) Select(ctx context.Context, title string, options []Option) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("no options for %q", title)
	}
	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o.Label, o.Key)
	}

	choice := options[0].Key
	err := f.run(ctx, huh.NewSelect[string]().
		Title(title).
		Options(opts...).
		Value(&choice))
	return choice, err
}

// Input reads one line of text
func (f *Form) Input(ctx context.Context, title, initial string, validate func(string) error) (string, error) {
	value := initial
	field := huh.NewInput().
		Title(title).
		Value(&value)
	if validate != nil {
		field = field.Validate(validate)
	}
	err := f.run(ctx, field)
	return value, err
}

// Text reads free-form multi-line text
func (f *Form) Text(ctx context.Context, title, initial string) (string, error) {
	value := initial
	err := f.run(ctx, huh.NewText().
		Title(title).
		Lines(4).
		Value(&value))
	return value, err
}

// Confirm asks a yes/no question
func (f *Form) Confirm(ctx context.Context, title string) (bool, error) {
	var confirmed bool
	err := f.run(ctx, huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed))
	return confirmed, err
}
