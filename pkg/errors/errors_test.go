package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeValidation, "test message: %s", "value")

	if err.Code != ErrCodeValidation {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeValidation)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "VALIDATION: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeTransport, cause, "failed to fetch")

	if err.Code != ErrCodeTransport {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeTransport)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestErrorWithStatus(t *testing.T) {
	err := &Error{Code: ErrCodeTransport, Message: "GET /Search()", StatusCode: 503, Body: "busy"}

	expected := "TRANSPORT: GET /Search() (status 503)"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeValidation, "test"),
			code:     ErrCodeValidation,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeValidation, "test"),
			code:     ErrCodeTransport,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeTransport, New(ErrCodeValidation, "inner"), "outer"),
			code:     ErrCodeTransport,
			expected: true,
		},
		{
			name:     "fmt wrapped",
			err:      fmt.Errorf("find: %w", New(ErrCodeResourceNotFound, "none")),
			code:     ErrCodeResourceNotFound,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeValidation,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeValidation,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeMalformedResponse, "test"),
			expected: ErrCodeMalformedResponse,
		},
		{
			name:     "context canceled",
			err:      context.Canceled,
			expected: ErrCodeCancelled,
		},
		{
			name:     "deadline exceeded wrapped",
			err:      fmt.Errorf("fetch: %w", context.DeadlineExceeded),
			expected: ErrCodeCancelled,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(New(ErrCodeResourceNotFound, "no match")) {
		t.Error("IsNotFound() = false for RESOURCE_NOT_FOUND")
	}
	if IsNotFound(New(ErrCodeTransport, "boom")) {
		t.Error("IsNotFound() = true for TRANSPORT")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeValidation, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRecordFrom(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		if r := RecordFrom(0, nil); r != nil {
			t.Errorf("RecordFrom(0, nil) = %v, want nil", r)
		}
	})

	t.Run("coded error", func(t *testing.T) {
		err := New(ErrCodeValidation, "unsupported combination")
		r := RecordFrom(2, err)
		if r.Index == nil || *r.Index != 2 {
			t.Fatalf("Index = %v, want 2", r.Index)
		}
		if r.Code != ErrCodeValidation {
			t.Errorf("Code = %v, want %v", r.Code, ErrCodeValidation)
		}
		if r.Message != "unsupported combination" {
			t.Errorf("Message = %q", r.Message)
		}
		if !errors.Is(r, err) {
			t.Error("record should unwrap to the original error")
		}
		if r.Error() != "item 2: VALIDATION: unsupported combination" {
			t.Errorf("Error() = %q", r.Error())
		}
	})

	t.Run("context error", func(t *testing.T) {
		r := RecordFrom(0, context.Canceled)
		if r.Code != ErrCodeCancelled {
			t.Errorf("Code = %v, want %v", r.Code, ErrCodeCancelled)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		r := RecordFrom(1, errors.New("boom"))
		if r.Code != ErrCodeInternal {
			t.Errorf("Code = %v, want %v", r.Code, ErrCodeInternal)
		}
	})
}

func TestNewRecord(t *testing.T) {
	r := NewRecord(New(ErrCodeProtocolUnsupported, "v3"))
	if r.Index != nil {
		t.Errorf("Index = %v, want nil", *r.Index)
	}
	if r.Error() != "PROTOCOL_UNSUPPORTED: v3" {
		t.Errorf("Error() = %q", r.Error())
	}
}
