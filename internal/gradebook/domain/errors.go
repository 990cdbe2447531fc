package domain

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

// Error taxonomy shared by the gate, services and HTTP layer.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation_error")
	ErrNotFound        = errors.New("not_found")
	ErrConflict        = errors.New("conflict")
	ErrDependency      = errors.New("dependency_failure")
)

// ValidationError describes rejected input field by field. It matches
// ErrValidation with errors.Is.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// NewValidationError builds a ValidationError with a single field reason.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{
		Message: field + ": " + reason,
		Fields:  map[string]string{field: reason},
	}
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, k := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Fields collects field errors and yields nil when none were added.
type Fields map[string]string

func (f Fields) Add(field, reason string) {
	if _, ok := f[field]; !ok {
		f[field] = reason
	}
}

// Err returns a *ValidationError for the collected fields, or nil.
func (f Fields) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: map[string]string(f)}
}
