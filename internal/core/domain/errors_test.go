package domain

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("SNAP-TEST-1000", "test message"),
			expected: "[SNAP-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("SNAP-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[SNAP-TEST-1001] test message: extra info",
		},
		{
			name:     "error with details and cause",
			err:      ErrNotFound.WithDetails("/tmp/x.pickle").Wrap(io.ErrUnexpectedEOF),
			expected: "[SNAP-FILE-4040] snapshot not found: /tmp/x.pickle: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("SNAP-TEST-1000", "message 1")
	err2 := NewDomainError("SNAP-TEST-1000", "message 2")
	err3 := NewDomainError("SNAP-TEST-1001", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_WrappedSentinels(t *testing.T) {
	err := fmt.Errorf("codec: open: %w", ErrConfiguration.WithDetails("unknown extension \".rar\""))

	if !errors.Is(err, ErrConfiguration) {
		t.Fatal("wrapped configuration error should match ErrConfiguration")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("configuration error should not match ErrNotFound")
	}
	if got := GetErrorCode(err); got != "SNAP-CONF-4000" {
		t.Fatalf("GetErrorCode() = %q, want %q", got, "SNAP-CONF-4000")
	}
	if !IsDomainError(err, "") {
		t.Fatal("IsDomainError(err, \"\") = false, want true")
	}
	if IsDomainError(io.EOF, "") {
		t.Fatal("IsDomainError(io.EOF) = true, want false")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := ErrSnapshotDecode.WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if errors.Unwrap(err) != cause {
		t.Error("Unwrap() should return the cause")
	}
}
