// Package prompt asks the user questions on the terminal using huh forms.
// Without a terminal, questions with a default answer resolve to the default
// and choices fail, so commands stay scriptable.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("aborted by user")

// ErrNotInteractive is returned when a choice is needed but stdin is not a terminal.
var ErrNotInteractive = errors.New("interactive input required but stdin is not a terminal")

// Prompter renders questions. The zero value is not usable; use New.
type Prompter struct {
	in          io.Reader
	out         io.Writer
	interactive bool
	accessible  bool
}

// Option configures a Prompter.
type Option func(*Prompter)

// WithIO sets the streams forms read from and render to. It also marks the
// prompter interactive, which tests use to drive forms from a buffer.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(p *Prompter) {
		p.in = in
		p.out = out
		p.interactive = true
	}
}

// WithAccessible renders forms as plain line prompts instead of a TUI.
func WithAccessible(accessible bool) Option {
	return func(p *Prompter) {
		p.accessible = accessible
	}
}

// New creates a Prompter on stdin and stderr.
func New(opts ...Option) *Prompter {
	p := &Prompter{
		in:          os.Stdin,
		out:         os.Stderr,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interactive reports whether questions are actually shown.
func (p *Prompter) Interactive() bool {
	return p.interactive
}

func (p *Prompter) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithInput(p.in).
		WithOutput(p.out).
		WithAccessible(p.accessible).
		WithShowHelp(false)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return fmt.Errorf("%w: %w", ErrAborted, err)
		}
		return err
	}
	return nil
}

// Ask asks for a string. An empty answer yields defaultValue.
func (p *Prompter) Ask(ctx context.Context, prompt, defaultValue string) (string, error) {
	if !p.interactive {
		return defaultValue, nil
	}

	value := defaultValue
	input := huh.NewInput().
		Title(strings.TrimSpace(prompt)).
		Placeholder(defaultValue).
		Value(&value)

	if err := p.run(ctx, input); err != nil {
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return defaultValue, nil
	}
	return strings.TrimSpace(value), nil
}

// Choose asks the user to pick one option and returns its index.
func (p *Prompter) Choose(ctx context.Context, title string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, fmt.Errorf("no options to choose from")
	}
	if !p.interactive {
		return -1, fmt.Errorf("%w: %s", ErrNotInteractive, title)
	}

	opts := make([]huh.Option[int], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, i)
	}

	choice := 0
	sel := huh.NewSelect[int]().
		Title(title).
		Options(opts...).
		Value(&choice)

	if err := p.run(ctx, sel); err != nil {
		return -1, err
	}
	return choice, nil
}

// Confirm asks a yes/no question. Without a terminal it returns def.
func (p *Prompter) Confirm(ctx context.Context, title string, def bool) (bool, error) {
	if !p.interactive {
		return def, nil
	}

	answer := def
	confirm := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&answer)

	if err := p.run(ctx, confirm); err != nil {
		return false, err
	}
	return answer, nil
}
