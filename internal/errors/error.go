package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryRuntime  Category = "runtime"
	CategoryProtocol Category = "protocol"
	CategorySecurity Category = "security"
	CategoryConfig   Category = "config"
	CategoryStorage  Category = "storage"
	CategoryCLI      Category = "cli"
)

// LiveError is a structured error with a code, a category and an optional
// fix suggestion.
type LiveError struct {
	// Code is a unique error identifier (e.g., "E061").
	Code string

	// Category is the error type (runtime, protocol, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *LiveError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *LiveError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a LiveError with the same code.
func (e *LiveError) Is(target error) bool {
	t, ok := target.(*LiveError)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// WithSuggestion adds a fix suggestion to the error.
func (e *LiveError) WithSuggestion(s string) *LiveError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *LiveError) WithDetail(d string) *LiveError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *LiveError) Wrap(err error) *LiveError {
	e.Wrapped = err
	return e
}

// New creates a LiveError from a registered error code.
func New(code string) *LiveError {
	template, ok := registry[code]
	if !ok {
		return &LiveError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &LiveError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new LiveError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *LiveError {
	return &LiveError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a LiveError.
// Errors that already are LiveErrors are returned unchanged.
func FromError(err error, code string) *LiveError {
	if err == nil {
		return nil
	}
	var le *LiveError
	if stderrors.As(err, &le) {
		return le
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err (or anything it wraps) is a LiveError with code.
func HasCode(err error, code string) bool {
	return stderrors.Is(err, &LiveError{Code: code})
}
