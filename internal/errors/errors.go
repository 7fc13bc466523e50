package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig        = "CONFIG"
	ErrSSH           = "SSH"
	ErrConnect       = "CONNECT"
	ErrExec          = "EXEC"
	ErrPoolExhausted = "POOL_EXHAUSTED"
	ErrPoolClosed    = "POOL_CLOSED"
	ErrBatch         = "BATCH"
	ErrQueueFull     = "QUEUE_FULL"
	ErrForcedStop    = "FORCED_STOP"
	ErrWorkerState   = "WORKER_STATE"
)

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
// Only the outermost structured error in the chain is consulted, so a
// BATCH error wrapping an EXEC error reports BATCH.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var icErr *Error
	if errors.As(err, &icErr) {
		return icErr.Code == code
	}
	return false
}

// HasCode reports whether any structured Error in the chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var icErr *Error
		if !errors.As(err, &icErr) {
			return false
		}
		if icErr.Code == code {
			return true
		}
		err = icErr.Cause
	}
	return false
}

// CodeOf returns the code of the outermost structured error, or "" if none.
func CodeOf(err error) string {
	var icErr *Error
	if errors.As(err, &icErr) {
		return icErr.Code
	}
	return ""
}
