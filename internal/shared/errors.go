package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a unique constraint violation.
	ErrConflict = errors.New("conflict")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated indicates a missing, invalid or expired credential.
	ErrUnauthenticated = errors.New("unauthorized")
	// ErrForbidden indicates a valid identity lacking a permission.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates login failure; it is an ErrUnauthenticated.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthenticated)
	// ErrInvalidToken indicates a token that is malformed, tampered with or expired.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInternal indicates an unexpected failure that must not leak to callers.
	ErrInternal = errors.New("internal error")
)

// ValidationError carries field level detail for ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// ForbiddenError names the permission a principal is missing.
type ForbiddenError struct {
	Permission string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: missing permission %s", e.Permission)
}

// Unwrap lets errors.Is match ErrForbidden.
func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// ConflictError wraps ErrConflict with the offending entity.
func ConflictError(what string) error {
	return fmt.Errorf("%s already exists: %w", what, ErrConflict)
}
