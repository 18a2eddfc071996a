package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FormatCompact returns a compact single-line error format.
func (e *LiveError) FormatCompact() string {
	var b strings.Builder

	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Wrapped != nil {
		b.WriteString(" (")
		b.WriteString(e.Wrapped.Error())
		b.WriteString(")")
	}

	return b.String()
}

// Format returns the multi-line form used by the CLI.
func (e *LiveError) Format() string {
	var b strings.Builder
	b.WriteString("ERROR ")
	b.WriteString(e.FormatCompact())
	b.WriteString("\n")
	if e.Detail != "" {
		fmt.Fprintf(&b, "\n  %s\n", e.Detail)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Hint: %s\n", e.Suggestion)
	}
	if e.DocURL != "" {
		fmt.Fprintf(&b, "\n  Learn more: %s\n", e.DocURL)
	}
	return b.String()
}

type jsonError struct {
	Code       string   `json:"code,omitempty"`
	Category   Category `json:"category"`
	Message    string   `json:"message"`
	Detail     string   `json:"detail,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
	DocURL     string   `json:"docUrl,omitempty"`
	Cause      string   `json:"cause,omitempty"`
}

// FormatJSON returns the error as a JSON object.
func (e *LiveError) FormatJSON() string {
	je := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if e.Wrapped != nil {
		je.Cause = e.Wrapped.Error()
	}
	b, _ := json.Marshal(je)
	return string(b)
}

// PrintError prints a formatted error to stderr.
func PrintError(err error) {
	if le, ok := err.(*LiveError); ok {
		fmt.Fprint(os.Stderr, le.Format())
		return
	}
	fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
}
