// Package errors defines the structured error type shared by gpuhot
// packages. Every user-facing failure carries a code, a short message, the
// underlying cause and, where one exists, a suggestion for fixing it.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig    = "CONFIG"
	ErrTransport = "TRANSPORT"
	ErrDecode    = "DECODE"
	ErrRetry     = "RETRY"
	ErrExport    = "EXPORT"
	ErrRecord    = "RECORD"
)

// Error is a structured error. Error() renders it as:
//
//	✗ <What failed>
//
//	  <Why it failed>
//
//	  <How to fix it>
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

// Wrap wraps an existing error with a message, defaulting to ErrTransport.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrTransport,
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

// NewRetryExhausted reports that automatic reconnection stopped after attempts tries.
func NewRetryExhausted(attempts int) *Error {
	return &Error{
		Code:       ErrRetry,
		Message:    fmt.Sprintf("Gave up reconnecting after %d attempts", attempts),
		Suggestion: "Press r to retry, or check that the telemetry server is running",
	}
}

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
	return CodeOf(err) == code && code != ""
}

// CodeOf returns the code of the first structured Error in err's chain,
// or "" when there is none.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var gErr *Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	return ""
}

// Summary returns the one-line form of err, suitable for a status bar.
func Summary(err error) string {
	if err == nil {
		return ""
	}
	var gErr *Error
	if errors.As(err, &gErr) {
		if gErr.Cause != nil {
			return gErr.Message + ": " + gErr.Cause.Error()
		}
		return gErr.Message
	}
	return err.Error()
}
