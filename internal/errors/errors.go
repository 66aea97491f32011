package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig = "CONFIG"
	ErrInput  = "INPUT"
	ErrKey    = "KEY"
	ErrSSH    = "SSH"
	ErrRemote = "REMOTE"
	ErrExec   = "EXEC"
)

// Exit codes returned by the keyprov binary.
const (
	ExitOK      = 0
	ExitUsage   = 1 // bad input, declined prompt, unusable local key
	ExitFailure = 2 // connection or remote operation failed
)

// ErrDeclined is returned when the user answers "no" to a required prompt.
var ErrDeclined = errors.New("declined by user")

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrSSH code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrSSH,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var kpErr *Error
	if errors.As(err, &kpErr) {
		return kpErr.Code == code
	}
	return false
}

// ExitCode maps an error to the process exit status.
// Input, key and config problems are usage errors; everything else
// (connection, auth, remote I/O) is a failure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, ErrDeclined) {
		return ExitUsage
	}
	var kpErr *Error
	if errors.As(err, &kpErr) {
		switch kpErr.Code {
		case ErrInput, ErrKey, ErrConfig:
			return ExitUsage
		}
	}
	return ExitFailure
}
