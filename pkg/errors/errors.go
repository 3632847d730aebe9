// Package errors provides the structured error taxonomy shared by the
// Airtable transport and facade layers.
package errors

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeAuthentication represents bad or missing credentials (401, 403)
	ErrorTypeAuthentication ErrorType = "authentication"
	// ErrorTypeNotFound represents missing bases, tables, fields or records (404)
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeValidation represents payloads rejected by the vendor (other 4xx)
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeRateLimit represents throttled requests (429)
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeServer represents vendor-side failures (5xx)
	ErrorTypeServer ErrorType = "server"
	// ErrorTypeTransport represents connection, timeout and cancellation failures
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeConfig represents invalid client configuration
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeData represents responses that could not be decoded
	ErrorTypeData ErrorType = "data"
)

// Error represents a structured error with context
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Cause      error
	Details    map[string]interface{}
	Stack      []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithStatus records the HTTP status the error was classified from
func (e *Error) WithStatus(code int) *Error {
	e.StatusCode = code
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:       errType,
			Message:    message,
			StatusCode: existingErr.StatusCode,
			Cause:      err,
			Stack:      existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// TypeOf returns the type of the outermost *Error in err's chain, or "" when
// err carries none.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Type
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsAuthentication reports whether err is an authentication failure
func IsAuthentication(err error) bool { return IsType(err, ErrorTypeAuthentication) }

// IsNotFound reports whether err is a not-found failure
func IsNotFound(err error) bool { return IsType(err, ErrorTypeNotFound) }

// IsValidation reports whether err is a validation failure
func IsValidation(err error) bool { return IsType(err, ErrorTypeValidation) }

// IsRateLimited reports whether err is a 429 from the vendor
func IsRateLimited(err error) bool { return IsType(err, ErrorTypeRateLimit) }

// IsServer reports whether err is a vendor 5xx
func IsServer(err error) bool { return IsType(err, ErrorTypeServer) }

// IsTransport reports whether err is a network-level failure
func IsTransport(err error) bool { return IsType(err, ErrorTypeTransport) }

// IsRetryable returns true if a caller-side retry could succeed. The client
// never retries on its own.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch TypeOf(err) {
	case ErrorTypeRateLimit, ErrorTypeServer, ErrorTypeTransport:
		return true
	default:
		return false
	}
}

// As is errors.As from the standard library
func As(err error, target any) bool { return errors.As(err, target) }

// Is lets errors.Is match on error type alone, e.g.
// errors.Is(err, &Error{Type: ErrorTypeNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Cause == nil && t.Type == e.Type
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
