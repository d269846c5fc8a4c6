// Package domain defines the core domain models for local-state-sync.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a protocol-level error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "LSS-CONF-4001")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
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

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks whether the error is a DomainError.
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

// ============================================================================
// Configuration Errors (CONF)
// Fatal caller programming errors, surfaced synchronously at setup.
// ============================================================================

var (
	// ErrKeyLength indicates the encryption key does not decode to 32 bytes.
	ErrKeyLength = NewDomainError("LSS-CONF-4001", "encryption key must decode to exactly 32 bytes")

	// ErrKeyEncoding indicates the encryption key is not valid base64url.
	ErrKeyEncoding = NewDomainError("LSS-CONF-4002", "encryption key is not valid base64url")

	// ErrCallbackMissing indicates no state-updated callback was supplied.
	ErrCallbackMissing = NewDomainError("LSS-CONF-4003", "state-updated callback is required")
)

// ============================================================================
// Engine Errors (ENG)
// Write-path errors that propagate to the caller.
// ============================================================================

var (
	// ErrNotReady indicates a write/clear was invoked before setup completed.
	// The caller may retry once the engine reaches the loaded state.
	ErrNotReady = NewDomainError("LSS-ENG-4250", "sync engine is not ready")

	// ErrDisabled indicates the storage substrate is unavailable in this
	// environment. This condition is permanent for the instance.
	ErrDisabled = NewDomainError("LSS-ENG-4251", "sync is disabled: storage unavailable")

	// ErrClosed indicates the engine has been closed.
	ErrClosed = NewDomainError("LSS-ENG-4252", "sync engine is closed")
)

// ============================================================================
// Record Errors (REC)
// Read-path errors. These are always absorbed by the sync engine: the
// state-updated callback is simply not invoked for the offending record.
// ============================================================================

var (
	// ErrRecordMalformed indicates the stored record does not have the
	// expected dot-separated field structure.
	ErrRecordMalformed = NewDomainError("LSS-REC-4000", "malformed record")

	// ErrAuthentication indicates AEAD verification failed: wrong key,
	// corrupted ciphertext, or tampered associated data.
	ErrAuthentication = NewDomainError("LSS-REC-4010", "record authentication failed")

	// ErrStateExpired indicates the record authenticated but its expiration
	// has passed. The stale record is removed from storage as a side effect.
	ErrStateExpired = NewDomainError("LSS-REC-4011", "record expired")

	// ErrParse indicates the decrypted bytes failed the state parser.
	ErrParse = NewDomainError("LSS-REC-4001", "state parse failed")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrStorage indicates a storage substrate failure.
	ErrStorage = NewDomainError("LSS-SYS-5001", "storage error")
)
