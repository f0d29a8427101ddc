package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"tagged wins over content", Tag("QuotaError", errors.New("timeout talking to upstream")), "QuotaError"},
		{"wrapped tag", fmt.Errorf("fetch: %w", Tag("QuotaError", errors.New("boom"))), "QuotaError"},
		{"timeout message", errors.New("request timeout after 30s"), "TimeoutError"},
		{"timed out message", errors.New("operation timed out"), "TimeoutError"},
		{"deadline exceeded", context.DeadlineExceeded, "TimeoutError"},
		{"rate limit message", errors.New("rate limit exceeded"), "RateLimitError"},
		{"429 status", errors.New("unexpected status 429"), "RateLimitError"},
		{"connection refused", errors.New("dial tcp: connection refused"), "ConnectionError"},
		{"broken pipe", errors.New("write: broken pipe"), "ConnectionError"},
		{"plain error falls back", errors.New("something odd"), "Error"},
		{"wrapped plain error", fmt.Errorf("outer: %w", errors.New("inner oddity")), "Error"},
		{"typed error uses type name", &net.AddrError{Err: "bad addr", Addr: "x"}, "AddrError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorKind(tt.err); got != tt.want {
				t.Errorf("ErrorKind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorContext_Key(t *testing.T) {
	ectx := NewErrorContext(errors.New("request timeout"), "payments", "charge", SeverityHigh, nil)

	if ectx.Key() != "payments:TimeoutError" {
		t.Errorf("Key() = %q, want %q", ectx.Key(), "payments:TimeoutError")
	}
	if ectx.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
	if ectx.RecoveryAttempts != 0 {
		t.Errorf("expected 0 attempts, got %d", ectx.RecoveryAttempts)
	}
}

func TestTag_PreservesMessage(t *testing.T) {
	err := Tag("QuotaError", errors.New("daily quota exhausted"))

	if err.Error() != "daily quota exhausted" {
		t.Errorf("Error() = %q, want original message", err.Error())
	}
}
