package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type for time-entry operations.
type ErrorCode string

const (
	// ErrCodeInvalidPeriod indicates a time-period phrase that matches no known form.
	ErrCodeInvalidPeriod ErrorCode = "INVALID_PERIOD"
	// ErrCodeNotFound indicates a name lookup that yielded no matches.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeUpstreamError indicates a non-success response from the Kantata API.
	ErrCodeUpstreamError ErrorCode = "UPSTREAM_ERROR"
	// ErrCodeTimeout indicates an upstream request exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeAggregationError indicates a malformed record during report grouping.
	ErrCodeAggregationError ErrorCode = "AGGREGATION_ERROR"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeUnauthorized indicates a missing or rejected API credential.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// DomainError represents a structured error carrying one of the codes above.
type DomainError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Convenience constructors for the common error types.

// InvalidPeriod creates an invalid period error.
func InvalidPeriod(msg string) *DomainError {
	return &DomainError{Code: ErrCodeInvalidPeriod, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *DomainError {
	return &DomainError{Code: ErrCodeNotFound, Message: msg}
}

// Upstream creates an upstream error.
func Upstream(msg string, cause error) *DomainError {
	return &DomainError{Code: ErrCodeUpstreamError, Message: msg, Cause: cause}
}

// Timeout creates a timeout error.
func Timeout(msg string, cause error) *DomainError {
	return &DomainError{Code: ErrCodeTimeout, Message: msg, Cause: cause}
}

// Aggregation creates an aggregation error.
func Aggregation(msg string) *DomainError {
	return &DomainError{Code: ErrCodeAggregationError, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *DomainError {
	return &DomainError{Code: ErrCodeInvalidArgument, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *DomainError {
	return &DomainError{Code: ErrCodeUnauthorized, Message: msg}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *DomainError {
	return &DomainError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error carries a specific code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the error code from any error.
// Returns the provided default code if the error is not a DomainError.
func CodeOf(err error, defaultCode ErrorCode) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return defaultCode
}
