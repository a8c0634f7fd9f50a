// Package errors defines the error taxonomy shared by the index backends,
// the query executor, and the CLI. Callers match on the sentinels with
// errors.Is; the typed errors carry the context needed for log lines.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrIndexUnavailable     = errors.New("index unavailable")
	ErrMalformedData        = errors.New("malformed index data")
	ErrConfigurationMissing = errors.New("store configuration missing")
	ErrInvalidInput         = errors.New("invalid input")
)

// IndexUnavailableError reports that a term lookup could not be completed,
// either because the backing store was unreachable or because the data it
// returned could not be decoded.
type IndexUnavailableError struct {
	Term    string
	Backend string
	Err     error
}

func (e *IndexUnavailableError) Error() string {
	if e.Term == "" {
		return fmt.Sprintf("%s index unavailable: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("%s index unavailable for term %q: %v", e.Backend, e.Term, e.Err)
}

func (e *IndexUnavailableError) Is(target error) bool {
	return target == ErrIndexUnavailable
}

func (e *IndexUnavailableError) Unwrap() error {
	return e.Err
}

// NewIndexUnavailable wraps err as an IndexUnavailableError. An error that
// already is one is returned as is so the original term and backend survive.
func NewIndexUnavailable(backend, term string, err error) error {
	var existing *IndexUnavailableError
	if errors.As(err, &existing) {
		return err
	}
	return &IndexUnavailableError{Term: term, Backend: backend, Err: err}
}

// NewMalformedData reports stored data that could not be decoded.
func NewMalformedData(backend, term, format string, args ...any) error {
	return &IndexUnavailableError{
		Term:    term,
		Backend: backend,
		Err:     fmt.Errorf("%w: %s", ErrMalformedData, fmt.Sprintf(format, args...)),
	}
}

// ConfigurationMissingError is returned instead of a client when the store
// connection resource does not exist. Hint is meant to be shown to a human.
type ConfigurationMissingError struct {
	Path string
	Hint string
}

func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("store configuration not found: %s", e.Path)
}

func (e *ConfigurationMissingError) Is(target error) bool {
	return target == ErrConfigurationMissing
}

func NewConfigurationMissing(path, hint string) *ConfigurationMissingError {
	return &ConfigurationMissingError{Path: path, Hint: hint}
}

// Invalidf builds an ErrInvalidInput with a formatted reason.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Hint extracts the setup hint from a ConfigurationMissingError anywhere in
// the chain.
func Hint(err error) (string, bool) {
	var missing *ConfigurationMissingError
	if errors.As(err, &missing) {
		return missing.Hint, true
	}
	return "", false
}
