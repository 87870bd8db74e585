package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the kinds of failure the harvester distinguishes
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeHandshake   ErrorType = "handshake"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotImage    ErrorType = "not_image"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeDecode      ErrorType = "decode"
	ErrorTypeStore       ErrorType = "store"
	ErrorTypePolicy      ErrorType = "policy"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error carries a failure kind alongside a message and, for HTTP failures, the status code
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("%s error: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New creates a typed error
func New(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Code: code}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown when err is not an *Error
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Reason returns the human-readable message of err without its type prefix
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e == err {
		return e.Message
	}
	return err.Error()
}

// IsRetryable checks if an error type should be retried.
// Unknown errors are retried: any unexpected failure during a fetch gets another attempt.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeNotFound, ErrorTypeUnknown:
		return true
	case ErrorTypeNotImage, ErrorTypePolicy, ErrorTypeParsing, ErrorTypeHandshake, ErrorTypeDecode, ErrorTypeStore:
		return false
	default:
		return false
	}
}

// FromStatusCode maps a non-success HTTP status to a typed error
func FromStatusCode(statusCode int, url string) *Error {
	switch {
	case statusCode == 404:
		return New(ErrorTypeNotFound, statusCode, "resource not found: %s", url)
	case statusCode == 429:
		return New(ErrorTypeRateLimit, statusCode, "rate limit exceeded: %s", url)
	case statusCode >= 500:
		return New(ErrorTypeServerError, statusCode, "server error: %s", url)
	default:
		return New(ErrorTypeUnknown, statusCode, "unexpected status code %d: %s", statusCode, url)
	}
}
