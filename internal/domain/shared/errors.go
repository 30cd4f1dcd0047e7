package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error with a stable machine code
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrValidation          = NewDomainError("VALIDATION_ERROR", "Invalid input provided")
	ErrInvalidTransition   = NewDomainError("INVALID_TRANSITION", "Status transition not allowed")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrSkippedDuplicate    = NewDomainError("SKIPPED_DUPLICATE", "Operation already in flight for this key")
	ErrAccountNotConnected = NewDomainError("ACCOUNT_NOT_CONNECTED", "Marketplace account is not connected")
)

// NewValidationError creates a VALIDATION_ERROR with a specific message
func NewValidationError(message string) *DomainError {
	return NewDomainError("VALIDATION_ERROR", message)
}

// IsCode reports whether err is a DomainError carrying the given code
func IsCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// AdapterError represents a failure reported by an upstream marketplace API.
// It carries the upstream HTTP status and platform error code so callers can
// record them in per-item results without parsing message strings.
type AdapterError struct {
	Marketplace string
	Operation   string
	StatusCode  int
	PlatformMsg string
	Err         error
}

// Error implements the error interface
func (e *AdapterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("adapter %s %s: %v", e.Marketplace, e.Operation, e.Err)
	}
	return fmt.Sprintf("adapter %s %s: status=%d %s", e.Marketplace, e.Operation, e.StatusCode, e.PlatformMsg)
}

// Unwrap returns the wrapped error
func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError creates an AdapterError for an upstream failure
func NewAdapterError(marketplace, operation string, statusCode int, platformMsg string, err error) *AdapterError {
	return &AdapterError{
		Marketplace: marketplace,
		Operation:   operation,
		StatusCode:  statusCode,
		PlatformMsg: platformMsg,
		Err:         err,
	}
}

// IsAdapterError reports whether err is (or wraps) an AdapterError
func IsAdapterError(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae)
}
