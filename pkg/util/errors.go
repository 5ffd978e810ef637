// Package util provides utility functions and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrConnection       = errors.New("device unreachable")
	ErrAuth             = errors.New("authentication failed")
	ErrProtocol         = errors.New("unexpected device response")
	ErrPersistence      = errors.New("persistence failure")
	ErrNotFound         = errors.New("resource not found")
	ErrCancelled        = errors.New("job cancelled")
	ErrJobActive        = errors.New("a job is already running")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrValidationFailed = errors.New("validation failed")
	ErrUnsupported      = errors.New("operation not supported by device")
)

// ConnectionError means a device could not be reached.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() []error {
	return []error{ErrConnection, e.Err}
}

// NewConnectionError creates a connection error for address
func NewConnectionError(address string, err error) *ConnectionError {
	return &ConnectionError{Address: address, Err: err}
}

// AuthError is returned once every candidate credential has been rejected.
type AuthError struct {
	Address  string
	Vendor   string
	Attempts int
}

func (e *AuthError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("no credentials configured for %s (vendor %q)", e.Address, e.Vendor)
	}
	return fmt.Sprintf("authentication failed for %s after %d attempt(s)", e.Address, e.Attempts)
}

func (e *AuthError) Unwrap() error {
	return ErrAuth
}

// ProtocolError describes a malformed or unexpected device response.
type ProtocolError struct {
	Address   string
	Operation string
	Details   string
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("%s on %s: unexpected response", e.Operation, e.Address)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *ProtocolError) Unwrap() error {
	return ErrProtocol
}

// NewProtocolError creates a protocol error
func NewProtocolError(address, operation, details string) *ProtocolError {
	return &ProtocolError{Address: address, Operation: operation, Details: details}
}

// PersistenceError wraps a topology/config store failure.
type PersistenceError struct {
	Operation string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Operation, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// NewPersistenceError creates a persistence error
func NewPersistenceError(operation string, err error) *PersistenceError {
	return &PersistenceError{Operation: operation, Err: err}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddError adds an error message unconditionally
func (v *ValidationBuilder) AddError(message string) *ValidationBuilder {
	v.errors = append(v.errors, message)
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
