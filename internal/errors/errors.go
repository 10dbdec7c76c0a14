// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotConnected       = errors.New("not connected")
	ErrConnectionInFlight = errors.New("connection attempt already in progress")
	ErrAlreadyConnected   = errors.New("already connected")
	ErrInvalidTransition  = errors.New("invalid session transition")
	ErrNoSignal           = errors.New("no signal available")
	ErrNeutralSignal      = errors.New("signal is neutral")
	ErrSymbolMismatch     = errors.New("signal symbol does not match requested symbol")
	ErrStakeOutOfRange    = errors.New("stake amount out of range")
	ErrStaleResponse      = errors.New("stale response discarded")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrJournalClosed      = errors.New("journal is closed")
)

// NetworkError represents a transport-level failure: DNS, connection
// refused, or a timed-out round trip. Always recoverable; retried only
// on the next user action or poll tick.
type NetworkError struct {
	Endpoint string
	Timeout  bool
	Err      error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("network error [%s]: request timed out: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("network error [%s]: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new NetworkError.
func NewNetworkError(endpoint string, timeout bool, err error) *NetworkError {
	return &NetworkError{
		Endpoint: endpoint,
		Timeout:  timeout,
		Err:      err,
	}
}

// BackendError represents a failure reported by the backend itself,
// e.g. bad credentials or a rejected trade. The message is surfaced to
// the user verbatim and never retried automatically.
type BackendError struct {
	Endpoint string
	Message  string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error [%s]: %s", e.Endpoint, e.Message)
}

// NewBackendError creates a new BackendError.
func NewBackendError(endpoint, message string) *BackendError {
	return &BackendError{
		Endpoint: endpoint,
		Message:  message,
	}
}

// PreconditionError represents a local guard failure. The action is
// refused before any network call is made.
type PreconditionError struct {
	Action string
	Reason error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed [%s]: %v", e.Action, e.Reason)
}

func (e *PreconditionError) Unwrap() error {
	return e.Reason
}

// NewPreconditionError creates a new PreconditionError.
func NewPreconditionError(action string, reason error) *PreconditionError {
	return &PreconditionError{
		Action: action,
		Reason: reason,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsBackend reports whether err is a BackendError.
func IsBackend(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// IsPrecondition reports whether err is a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
