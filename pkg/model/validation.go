package model

import (
	"fmt"
	"strings"
)

// FieldError describes a validation error on a specific descriptor field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationError aggregates descriptor-level validation failures. These are
// fatal for the whole run: no timestamp is processed when the document itself
// is malformed.
type ValidationError struct {
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		if d.Field != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", d.Field, d.Message))
		} else {
			parts = append(parts, d.Message)
		}
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

// NewValidationError creates a ValidationError with field details.
func NewValidationError(msg string, details ...FieldError) *ValidationError {
	return &ValidationError{Message: msg, Details: details}
}
