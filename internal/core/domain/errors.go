// Package domain defines the core domain types for statesnap.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a snapshot subsystem error with a structured error code.
//
// Codes have the form SNAP-<AREA>-<NNNN>. Two DomainErrors are equal under
// errors.Is when their codes match, so callers compare against the sentinels
// below regardless of details or causes attached at the failure site.
type DomainError struct {
	Code    string // Error code (e.g., "SNAP-FILE-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

var (
	// ErrConfiguration indicates an unknown codec id, an unknown file
	// extension or an otherwise unusable snapshot setting.
	ErrConfiguration = NewDomainError("SNAP-CONF-4000", "invalid snapshot configuration")

	// ErrNotFound indicates the snapshot file to import does not exist.
	ErrNotFound = NewDomainError("SNAP-FILE-4040", "snapshot not found")

	// ErrSnapshotDecode indicates a corrupt or truncated compressed block.
	ErrSnapshotDecode = NewDomainError("SNAP-DATA-4220", "corrupt snapshot data")

	// ErrIncompatibleSnapshot indicates the payload references types this
	// process does not know, typically a snapshot of a different workflow.
	ErrIncompatibleSnapshot = NewDomainError("SNAP-DATA-4221", "incompatible snapshot")
)
