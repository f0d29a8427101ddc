package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Severity classifies how serious a failure is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ErrorContext describes a single detected failure. It is created once at
// detection time and never mutated afterwards, except for the attempt
// counter which the executor bumps per try.
type ErrorContext struct {
	Timestamp        time.Time
	ErrorType        string
	ErrorMessage     string
	ServiceName      string
	Operation        string
	Severity         Severity
	RecoveryAttempts int
	ContextData      map[string]string
}

// NewErrorContext builds the context for a failure raised by a service
// operation. The error type is derived via ErrorKind.
func NewErrorContext(err error, service, operation string, severity Severity, data map[string]string) *ErrorContext {
	return &ErrorContext{
		Timestamp:    time.Now(),
		ErrorType:    ErrorKind(err),
		ErrorMessage: err.Error(),
		ServiceName:  service,
		Operation:    operation,
		Severity:     severity,
		ContextData:  data,
	}
}

// Key returns the (service, error_type) pattern key used for frequency
// tracking.
func (c *ErrorContext) Key() string {
	return c.ServiceName + ":" + c.ErrorType
}

// kindError carries an explicit error classification assigned by the caller.
type kindError struct {
	kind string
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }

// Tag attaches an explicit kind to an error so the analyzer keys on a
// stable classification instead of a derived one.
func Tag(kind string, err error) error {
	return &kindError{kind: kind, err: err}
}

// ErrorKind derives the classification string for an error. Tagged errors
// win; otherwise content heuristics map common transient failures to stable
// kinds, falling back to the concrete type name.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var tagged *kindError
	if errors.As(err, &tagged) {
		return tagged.kind
	}

	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return "TimeoutError"
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") || strings.Contains(msg, "429"):
		return "RateLimitError"
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe") || strings.Contains(msg, "no such host"):
		return "ConnectionError"
	}

	t := strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
	if t == "errors.errorString" || t == "fmt.wrapError" || t == "fmt.wrapErrors" {
		return "Error"
	}
	if i := strings.LastIndex(t, "."); i >= 0 {
		t = t[i+1:]
	}
	return t
}
