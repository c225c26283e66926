// LOCATION: internal/errors/errors.go
//
// This file provides:
// - Process exit codes for the firstline CLI
// - Sentinel errors for all error conditions
// - Error category checking functions
// - ErrorToCode mapping
// - Error wrapping utilities

package errors

import (
	"context"
	"errors"
	"fmt"
)

// ============================================================================
// Exit codes - returned by cmd/firstline
// ============================================================================

const (
	CodeOK             = 0
	CodeUnknown        = 1
	CodeInvalidConfig  = 2
	CodeNotFound       = 3
	CodeInvalidShape   = 4
	CodeStore          = 5
	CodeGranuleRead    = 6
	CodeNotImplemented = 7
	CodeCanceled       = 8
)

// CodeName returns a human-readable name for an exit code.
func CodeName(code int) string {
	switch code {
	case CodeOK:
		return "OK"
	case CodeUnknown:
		return "Unknown"
	case CodeInvalidConfig:
		return "InvalidConfig"
	case CodeNotFound:
		return "NotFound"
	case CodeInvalidShape:
		return "InvalidShape"
	case CodeStore:
		return "Store"
	case CodeGranuleRead:
		return "GranuleRead"
	case CodeNotImplemented:
		return "NotImplemented"
	case CodeCanceled:
		return "Canceled"
	default:
		return fmt.Sprintf("Code(%d)", code)
	}
}

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Not found errors
	ErrNotFound      = errors.New("not found")
	ErrLabelNotFound = fmt.Errorf("label %w", ErrNotFound)

	// Validation errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidShape  = errors.New("invalid dimensionality")

	// Store errors
	ErrStoreLocked  = errors.New("store locked")
	ErrStoreClosed  = errors.New("store closed")
	ErrReadOnly     = errors.New("store opened read-only")
	ErrCorruptEntry = errors.New("corrupt index entry")

	// Granule errors
	ErrGranuleRead = errors.New("granule read failed")
	ErrInvalidFile = fmt.Errorf("invalid file: %w", ErrGranuleRead)
	ErrInvalidData = fmt.Errorf("invalid data: %w", ErrGranuleRead)

	// Capability errors
	ErrNotImplemented = errors.New("not implemented")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// New is a convenience wrapper for errors.New
var New = errors.New

// Join is a convenience wrapper for errors.Join
var Join = errors.Join

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidShape)
}

// IsStoreError returns true if err originates from the backing store.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStoreLocked) ||
		errors.Is(err, ErrStoreClosed) ||
		errors.Is(err, ErrReadOnly) ||
		errors.Is(err, ErrCorruptEntry)
}

// IsRecoverable returns true for errors a build recovers from by logging
// and moving on to the next granule.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrGranuleRead)
}

// ============================================================================
// Error to exit code mapping
// ============================================================================

// ErrorToCode maps an error to the process exit code.
func ErrorToCode(err error) int {
	if err == nil {
		return CodeOK
	}

	switch {
	case IsNotFound(err):
		return CodeNotFound
	case Is(err, ErrInvalidShape):
		return CodeInvalidShape
	case IsValidation(err):
		return CodeInvalidConfig
	case IsStoreError(err):
		return CodeStore
	case Is(err, ErrGranuleRead):
		return CodeGranuleRead
	case Is(err, ErrNotImplemented):
		return CodeNotImplemented
	case Is(err, context.Canceled):
		return CodeCanceled
	default:
		return CodeUnknown
	}
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewLabelNotFound creates a label-not-found error for the given label.
func NewLabelNotFound(label string) error {
	return fmt.Errorf("%q: %w", label, ErrLabelNotFound)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidConfig)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the collected errors for errors.Is/As support.
func (v *ValidationErrors) Unwrap() []error {
	return v.Errors
}
