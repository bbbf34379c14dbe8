package cache

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents cache-specific error codes.
type ErrorCode int

const (
	// ErrUnknown represents an unknown error.
	ErrUnknown ErrorCode = iota
	// ErrKeyNotFound indicates the key was not found in cache.
	ErrKeyNotFound
	// ErrInvalidKey indicates the key is invalid.
	ErrInvalidKey
	// ErrInvalidValue indicates the value is invalid.
	ErrInvalidValue
	// ErrTTLInvalid indicates the TTL is invalid.
	ErrTTLInvalid
	// ErrRegionUnknown indicates the region is not registered.
	ErrRegionUnknown
	// ErrRegionInvalid indicates the region name is invalid.
	ErrRegionInvalid
	// ErrTierUnavailable indicates the distributed tier is not available.
	ErrTierUnavailable
	// ErrCircuitOpen indicates the circuit breaker is open.
	ErrCircuitOpen
	// ErrLoaderFailed indicates a caller-supplied loader failed.
	ErrLoaderFailed
	// ErrBrokerUnavailable indicates the message broker is not available.
	ErrBrokerUnavailable
)

// String returns the string representation of ErrorCode.
func (c ErrorCode) String() string {
	switch c {
	case ErrKeyNotFound:
		return "key_not_found"
	case ErrInvalidKey:
		return "invalid_key"
	case ErrInvalidValue:
		return "invalid_value"
	case ErrTTLInvalid:
		return "ttl_invalid"
	case ErrRegionUnknown:
		return "region_unknown"
	case ErrRegionInvalid:
		return "region_invalid"
	case ErrTierUnavailable:
		return "tier_unavailable"
	case ErrCircuitOpen:
		return "circuit_open"
	case ErrLoaderFailed:
		return "loader_failed"
	case ErrBrokerUnavailable:
		return "broker_unavailable"
	default:
		return "unknown"
	}
}

// Error represents a cache-specific error.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *Error) Is(target error) bool {
	var cacheErr *Error
	if errors.As(target, &cacheErr) {
		return e.Code == cacheErr.Code
	}
	return false
}

// ToHTTPStatus maps error code to HTTP status.
func (e *Error) ToHTTPStatus() int {
	switch e.Code {
	case ErrKeyNotFound:
		return http.StatusNotFound
	case ErrInvalidKey, ErrInvalidValue, ErrTTLInvalid, ErrRegionInvalid, ErrRegionUnknown:
		return http.StatusBadRequest
	case ErrTierUnavailable, ErrCircuitOpen, ErrBrokerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewError creates a new cache error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with a base error for error chain.
func WrapError(base *Error, message string, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: message,
		Cause:   cause,
	}
}

// Predefined errors for common cases.
var (
	ErrNotFound           = NewError(ErrKeyNotFound, "key not found")
	ErrInvalidKeyError    = NewError(ErrInvalidKey, "key is invalid")
	ErrInvalidValueError  = NewError(ErrInvalidValue, "value is invalid")
	ErrInvalidTTL         = NewError(ErrTTLInvalid, "TTL must be positive")
	ErrUnknownRegion      = NewError(ErrRegionUnknown, "region is not registered")
	ErrInvalidRegion      = NewError(ErrRegionInvalid, "region name is invalid")
	ErrTierDown           = NewError(ErrTierUnavailable, "distributed tier is unavailable")
	ErrCircuitBreakerOpen = NewError(ErrCircuitOpen, "circuit breaker is open")
	ErrBrokerDown         = NewError(ErrBrokerUnavailable, "message broker is unavailable")
)

// IsNotFound checks if the error is a key not found error.
func IsNotFound(err error) bool {
	var cacheErr *Error
	if errors.As(err, &cacheErr) {
		return cacheErr.Code == ErrKeyNotFound
	}
	return false
}

// IsTierUnavailable checks if the error is a distributed-tier unavailable error.
func IsTierUnavailable(err error) bool {
	var cacheErr *Error
	if errors.As(err, &cacheErr) {
		return cacheErr.Code == ErrTierUnavailable
	}
	return false
}

// IsCircuitOpen checks if the error is a circuit open error.
func IsCircuitOpen(err error) bool {
	var cacheErr *Error
	if errors.As(err, &cacheErr) {
		return cacheErr.Code == ErrCircuitOpen
	}
	return errors.Is(err, ErrCircuitBreakerOpen)
}

// ToHTTPStatus converts any error to an HTTP status code.
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var cacheErr *Error
	if errors.As(err, &cacheErr) {
		return cacheErr.ToHTTPStatus()
	}
	return http.StatusInternalServerError
}
