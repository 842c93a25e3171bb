// Package cli provides shared configuration and utilities for the sqlimport CLI.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Exit codes.
const (
	ExitSuccess = 0
	ExitGeneral = 1
	ExitConfig  = 2
	ExitParse   = 3
	ExitStale   = 4
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit code for err: the code of the first ExitError in
// its chain, ExitGeneral otherwise and ExitSuccess for nil.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitGeneral
}

// PrintError writes err to w in the form the CLI reports failures.
func PrintError(w io.Writer, err error) {
	_, _ = fmt.Fprintln(w, "Error:", err)
}

// ExitWithError prints the error and exits with the appropriate code.
func ExitWithError(err error) {
	PrintError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

// ConfigError creates an ExitError with ExitConfig code.
func ConfigError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Err: err}
}

// ParseError creates an ExitError with ExitParse code. It is used when a
// query file cannot be read or generated from. Failures writing artifacts
// are general errors.
func ParseError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitParse, Message: msg, Err: err}
}

// StaleError creates an ExitError with ExitStale code.
func StaleError(msg string) *ExitError {
	return &ExitError{Code: ExitStale, Message: msg}
}

// GeneralError creates an ExitError with ExitGeneral code.
func GeneralError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitGeneral, Message: msg, Err: err}
}
