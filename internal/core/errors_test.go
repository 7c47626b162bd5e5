// internal/core/errors_test.go
package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	if err.Error() != "[TEST_ERROR] test message" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return cause")
	}
}

func TestError_Is(t *testing.T) {
	wrapped := WrapError(ErrNoData, errors.New("empty chain"))
	if !errors.Is(wrapped, ErrNoData) {
		t.Error("wrapped error should match its base code")
	}
	if errors.Is(wrapped, ErrProviderUnavailable) {
		t.Error("different codes should not match")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("original")
	wrapped := WrapError(ErrProviderUnavailable, cause)
	if wrapped.Cause != cause {
		t.Error("cause not set")
	}
	if wrapped.Code != ErrProviderUnavailable.Code {
		t.Error("code not preserved")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), ErrProviderTimeout.Code},
		{"canceled", context.Canceled, ErrProviderTimeout.Code},
		{"no data", WrapError(ErrNoData, nil), ErrNoData.Code},
		{"wrapped coded", fmt.Errorf("chain: %w", WrapError(ErrNoData, nil)), ErrNoData.Code},
		{"plain", errors.New("boom"), ErrProviderUnavailable.Code},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			if got.Code != tc.want {
				t.Errorf("Classify() = %s, want %s", got.Code, tc.want)
			}
		})
	}

	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(WrapError(ErrProviderUnavailable, errors.New("503"))) {
		t.Error("unavailable should be retryable")
	}
	if IsRetryable(WrapError(ErrNoData, nil)) {
		t.Error("no data should not be retryable")
	}
}
