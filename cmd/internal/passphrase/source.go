package passphrase

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source resolves a keystore passphrase once and caches it. Resolution order
// is an explicit value, then the environment variable, then an interactive
// prompt on the terminal.
type Source struct {
	envVar string
	label  string
	fixed  string

	isTerminal func() bool
	read       func() ([]byte, error)

	once  sync.Once
	value string
	err   error
}

// NewSource builds a source for the keystore described by label (for
// example "owner") that checks envVar before prompting.
func NewSource(envVar, label string) *Source {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "keystore"
	} else {
		label += " keystore"
	}
	return &Source{
		envVar:     strings.TrimSpace(envVar),
		label:      label,
		isTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
		read:       func() ([]byte, error) { return term.ReadPassword(int(os.Stdin.Fd())) },
	}
}

// WithValue makes the source return value without consulting the
// environment or the terminal. An empty value is ignored.
func (s *Source) WithValue(value string) *Source {
	s.fixed = value
	return s
}

// Get returns the passphrase, resolving it on first use. Whitespace-only
// passphrases are rejected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		s.value, s.err = s.resolve()
	})
	return s.value, s.err
}

func (s *Source) resolve() (string, error) {
	if s.fixed != "" {
		return s.check(s.fixed, "passphrase")
	}
	if s.envVar != "" {
		if value, ok := os.LookupEnv(s.envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%s is set but empty", s.envVar)
			}
			return value, nil
		}
	}

	if !s.isTerminal() {
		if s.envVar != "" {
			return "", fmt.Errorf("%s passphrase required; set %s or run interactively", s.label, s.envVar)
		}
		return "", fmt.Errorf("%s passphrase required and no terminal available", s.label)
	}

	fmt.Fprintf(os.Stderr, "Enter %s passphrase: ", s.label)
	raw, err := s.read()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return s.check(string(raw), "passphrase")
}

func (s *Source) check(value, what string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", errors.New(s.label + " " + what + " cannot be empty")
	}
	return value, nil
}
