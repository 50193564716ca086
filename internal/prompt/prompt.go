package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/ssh/terminal"
)

var (
	// ErrInvalidChoice is returned when input is outside the enumerated menu.
	// Menu selections are not retried; the caller aborts the run.
	ErrInvalidChoice = errors.New("invalid menu selection")
	// errEmptyInput is returned when a required answer is blank.
	errEmptyInput = errors.New("input must not be empty")
)

// Option is one enumerated menu entry.
type Option struct {
	// Key is the single-character selection the operator types.
	Key string
	// Label is the human-readable description shown next to the key.
	Label string
}

// Prompter reads operator answers from an injectable reader so the
// interactive workflow is testable without a TTY.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// New creates a prompter over the provided reader and writer.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// NewStdio creates a prompter bound to the process stdin/stdout.
func NewStdio() *Prompter {
	return New(os.Stdin, os.Stdout)
}

// Line asks for a non-empty free-form answer.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)

	answer, err := p.readLine()
	if err != nil {
		return "", err
	}

	if answer == "" {
		return "", errEmptyInput
	}

	return answer, nil
}

// YesNo asks a yes/no question and accepts y/yes/n/no in any case.
func (p *Prompter) YesNo(label string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/n]: ", label)

	answer, err := p.readLine()
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidChoice, answer)
	}
}

// Select renders an enumerated menu and reads one selection.
// Input outside the option set is a fatal error, there is no retry.
func (p *Prompter) Select(title string, options []Option) (string, error) {
	fmt.Fprintln(p.out, title)

	for _, option := range options {
		fmt.Fprintf(p.out, "  %s) %s\n", option.Key, option.Label)
	}

	fmt.Fprint(p.out, "Choice: ")

	answer, err := p.readLine()
	if err != nil {
		return "", err
	}

	for _, option := range options {
		if answer == option.Key {
			return answer, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidChoice, answer)
}

// Password asks for a secret without echoing it when stdin is a terminal.
// Outside a terminal (tests, pipes) it falls back to a plain line read.
func (p *Prompter) Password(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)

	fd := int(os.Stdin.Fd())
	if terminal.IsTerminal(fd) {
		secret, err := terminal.ReadPassword(fd)

		// The echo-less read swallows the newline.
		fmt.Fprintln(p.out)

		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}

		return string(secret), nil
	}

	answer, err := p.readLine()
	if err != nil {
		return "", err
	}

	return answer, nil
}

// readLine reads and trims one line of input.
func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}

	if line == "" && errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}

	return strings.TrimSpace(line), nil
}
