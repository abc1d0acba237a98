package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ErrNonInteractive is returned when input is needed but stdin is not a terminal
var ErrNonInteractive = errors.New("input required in non-interactive mode")

// Prompter reads form input from the user
type Prompter interface {
	Input(label string, validate func(string) error) (string, error)
	Secret(label string) (string, error)
}

// TerminalPrompter prompts on the controlling terminal
type TerminalPrompter struct{}

// Input asks for a line of text
func (TerminalPrompter) Input(label string, validate func(string) error) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("%w: %s", ErrNonInteractive, strings.ToLower(label))
	}

	prompt := promptui.Prompt{
		Label:    label,
		Validate: promptui.ValidateFunc(validate),
	}
	value, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("%s prompt cancelled: %w", strings.ToLower(label), err)
	}
	return value, nil
}

// Secret asks for a value without echoing it
func (TerminalPrompter) Secret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w: %s", ErrNonInteractive, strings.ToLower(label))
	}

	fmt.Fprintf(os.Stderr, "%s: ", label)
	value, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return string(value), nil
}

func required(field string) func(string) error {
	return func(value string) error {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// valueOr returns value, then the environment variable, then asks prompt
func valueOr(value, envKey string, prompt func() (string, error)) (string, error) {
	if value != "" {
		return value, nil
	}
	if envKey != "" {
		if v := os.Getenv(envKey); v != "" {
			return v, nil
		}
	}
	return prompt()
}
