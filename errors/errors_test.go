package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"connection lost", ErrConnectionLost, true},
		{"fetch failed", ErrFetchFailed, true},
		{"hub rejected", ErrHubRejected, true},
		{"storage unavailable", ErrStorageUnavailable, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"no feed found", ErrNoFeedFound, false},
		{"invalid payload", ErrInvalidPayload, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"network error", fmt.Errorf("network connection failed"), true},
		{"plain error", errors.New("something else entirely"), false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsTransient(test.err)
			if result != test.expected {
				t.Errorf("IsTransient(%v) = %v, expected %v", test.err, result, test.expected)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"no feed found", ErrNoFeedFound, true},
		{"no hub found", ErrNoHubFound, true},
		{"invalid payload", ErrInvalidPayload, true},
		{"parsing failed", ErrParsingFailed, true},
		{"signature mismatch", ErrSignatureMismatch, true},
		{"verify token mismatch", ErrVerifyTokenMismatch, true},
		{"fetch failed", ErrFetchFailed, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsInvalid(test.err)
			if result != test.expected {
				t.Errorf("IsInvalid(%v) = %v, expected %v", test.err, result, test.expected)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(ErrInvalidConfig) {
		t.Error("expected ErrInvalidConfig to be fatal")
	}
	if !IsFatal(ErrMissingConfig) {
		t.Error("expected ErrMissingConfig to be fatal")
	}
	if IsFatal(ErrFetchFailed) {
		t.Error("expected ErrFetchFailed not to be fatal")
	}
	if IsFatal(nil) {
		t.Error("expected nil not to be fatal")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil defaults to transient", nil, ErrorTransient},
		{"missing config is fatal", ErrMissingConfig, ErrorFatal},
		{"no hub found is invalid", ErrNoHubFound, ErrorInvalid},
		{"unknown defaults to transient", errors.New("mystery"), ErrorTransient},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Classify(test.err); got != test.expected {
				t.Errorf("Classify(%v) = %v, expected %v", test.err, got, test.expected)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	base := errors.New("dial refused")
	wrapped := Wrap(base, "Fetcher", "Get", "page fetch")

	if wrapped == nil {
		t.Fatal("expected non-nil wrapped error")
	}
	if !strings.Contains(wrapped.Error(), "Fetcher.Get: page fetch failed") {
		t.Errorf("unexpected wrap format: %s", wrapped.Error())
	}
	if !errors.Is(wrapped, base) {
		t.Error("expected wrapped error to unwrap to base error")
	}
	if Wrap(nil, "Fetcher", "Get", "page fetch") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrapClassification(t *testing.T) {
	base := errors.New("boom")

	if !IsTransient(WrapTransient(base, "C", "M", "a")) {
		t.Error("WrapTransient result should classify as transient")
	}
	if !IsInvalid(WrapInvalid(base, "C", "M", "a")) {
		t.Error("WrapInvalid result should classify as invalid")
	}
	if !IsFatal(WrapFatal(base, "C", "M", "a")) {
		t.Error("WrapFatal result should classify as fatal")
	}

	// Classification survives further wrapping with fmt.Errorf
	inner := WrapInvalid(base, "C", "M", "a")
	outer := fmt.Errorf("outer: %w", inner)
	if !IsInvalid(outer) {
		t.Error("classification should be preserved through error chains")
	}

	// Unwrap reaches the base error
	var ce *ClassifiedError
	if !errors.As(inner, &ce) {
		t.Fatal("expected ClassifiedError in chain")
	}
	if ce.Component != "C" || ce.Operation != "M" {
		t.Errorf("unexpected context: %+v", ce)
	}
	if !errors.Is(inner, base) {
		t.Error("expected classified error to unwrap to base")
	}
}
