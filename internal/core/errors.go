// internal/core/errors.go
package core

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Provider errors
	ErrProviderUnavailable = &Error{Code: "PROVIDER_UNAVAILABLE", Message: "provider unavailable"}
	ErrNoData              = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrProviderTimeout     = &Error{Code: "PROVIDER_TIMEOUT", Message: "provider call timed out"}
	ErrUnknownProvider     = &Error{Code: "UNKNOWN_PROVIDER", Message: "unknown provider"}
	ErrInvalidSymbol       = &Error{Code: "INVALID_SYMBOL", Message: "invalid symbol"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// LLM errors
	ErrLLMFailed = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
)

// Classify maps an arbitrary error onto the provider error taxonomy.
// Context deadlines and cancellations become PROVIDER_TIMEOUT, network
// errors PROVIDER_UNAVAILABLE; coded errors keep their own code.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return WrapError(ErrProviderTimeout, err)
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return WrapError(ErrProviderTimeout, err)
		}
		return WrapError(ErrProviderUnavailable, err)
	}
	return WrapError(ErrProviderUnavailable, err)
}

// IsRetryable reports whether err is transient
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}
