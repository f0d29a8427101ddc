package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/ndquoc/remedy/internal/core/domain"
)

func errorCtx(service, errorType, message string, severity domain.Severity) *domain.ErrorContext {
	return &domain.ErrorContext{
		Timestamp:    time.Now(),
		ErrorType:    errorType,
		ErrorMessage: message,
		ServiceName:  service,
		Operation:    "fetch",
		Severity:     severity,
	}
}

func TestAnalyze_Cascade(t *testing.T) {
	tests := []struct {
		name         string
		message      string
		severity     domain.Severity
		wantStrategy domain.RecoveryStrategy
		wantAttempts int
		wantDelay    time.Duration
	}{
		{"timeout message", "request timeout after 30s", domain.SeverityMedium, domain.StrategyExponentialBackoff, 3, 2 * time.Second},
		{"rate limit message", "rate limit exceeded", domain.SeverityMedium, domain.StrategyExponentialBackoff, 2, 60 * time.Second},
		{"critical severity", "disk corruption detected", domain.SeverityCritical, domain.StrategyManualIntervention, 0, 0},
		{"default retry", "some transient glitch", domain.SeverityMedium, domain.StrategyImmediateRetry, 2, 1 * time.Second},
		// Message content beats severity: a critical timeout still backs off.
		{"timeout beats critical", "critical path timeout", domain.SeverityCritical, domain.StrategyExponentialBackoff, 3, 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New()
			action := a.Analyze(errorCtx("svc", "Error", tt.message, tt.severity))

			if action.Strategy != tt.wantStrategy {
				t.Errorf("strategy = %s, want %s", action.Strategy, tt.wantStrategy)
			}
			if action.MaxAttempts != tt.wantAttempts {
				t.Errorf("max attempts = %d, want %d", action.MaxAttempts, tt.wantAttempts)
			}
			if action.Delay != tt.wantDelay {
				t.Errorf("delay = %v, want %v", action.Delay, tt.wantDelay)
			}
		})
	}
}

func TestAnalyze_FrequencyOpensBreaker(t *testing.T) {
	a := New()

	// First four failures of the same pattern stay on the content path.
	for i := 0; i < 4; i++ {
		action := a.Analyze(errorCtx("svc", "TimeoutError", "request timeout", domain.SeverityMedium))
		if action.Strategy != domain.StrategyExponentialBackoff {
			t.Fatalf("failure %d: strategy = %s, want backoff", i+1, action.Strategy)
		}
	}

	// The fifth inside the window trips the breaker regardless of message.
	action := a.Analyze(errorCtx("svc", "TimeoutError", "request timeout", domain.SeverityMedium))
	if action.Strategy != domain.StrategyCircuitBreaker {
		t.Fatalf("strategy = %s, want circuit breaker", action.Strategy)
	}
	if action.MaxAttempts != 1 {
		t.Errorf("max attempts = %d, want 1", action.MaxAttempts)
	}
	if action.Delay != 300*time.Second {
		t.Errorf("delay = %v, want 300s", action.Delay)
	}
}

func TestAnalyze_FrequencyIsPerPattern(t *testing.T) {
	a := New()

	for i := 0; i < 4; i++ {
		a.Analyze(errorCtx("svc-a", "TimeoutError", "request timeout", domain.SeverityMedium))
	}

	// A different service shares nothing with svc-a's history.
	action := a.Analyze(errorCtx("svc-b", "TimeoutError", "request timeout", domain.SeverityMedium))
	if action.Strategy == domain.StrategyCircuitBreaker {
		t.Error("breaker opened across unrelated services")
	}
}

func TestAnalyze_OldOccurrencesExpire(t *testing.T) {
	a := New()
	current := time.Now()
	a.now = func() time.Time { return current }

	// Four failures two hours ago.
	old := errorCtx("svc", "TimeoutError", "request timeout", domain.SeverityMedium)
	old.Timestamp = current.Add(-2 * time.Hour)
	for i := 0; i < 4; i++ {
		a.Analyze(old)
	}

	// A fresh failure sees none of them inside the window.
	action := a.Analyze(errorCtx("svc", "TimeoutError", "request timeout", domain.SeverityMedium))
	if action.Strategy == domain.StrategyCircuitBreaker {
		t.Error("expired occurrences still counted toward the breaker")
	}
}

func TestRecordOutcome_EMA(t *testing.T) {
	a := New()
	ectx := errorCtx("svc", "TimeoutError", "request timeout", domain.SeverityMedium)
	action := domain.RecoveryAction{Strategy: domain.StrategyExponentialBackoff}

	// Untracked pattern reports the seed.
	if rate := a.SuccessRate("svc", "TimeoutError", action.Strategy); rate != 0.5 {
		t.Fatalf("initial rate = %v, want 0.5", rate)
	}

	// One success: 0.8*0.5 + 0.2*1.0 = 0.6
	a.RecordOutcome(ectx, action, true)
	if rate := a.SuccessRate("svc", "TimeoutError", action.Strategy); math.Abs(rate-0.6) > 1e-9 {
		t.Errorf("rate after success = %v, want 0.6", rate)
	}

	// One failure: 0.8*0.6 + 0.2*0.0 = 0.48
	a.RecordOutcome(ectx, action, false)
	if rate := a.SuccessRate("svc", "TimeoutError", action.Strategy); math.Abs(rate-0.48) > 1e-9 {
		t.Errorf("rate after failure = %v, want 0.48", rate)
	}

	// Rates stay inside (0, 1) no matter how one-sided the outcomes are.
	for i := 0; i < 100; i++ {
		a.RecordOutcome(ectx, action, true)
	}
	rate := a.SuccessRate("svc", "TimeoutError", action.Strategy)
	if rate <= 0 || rate >= 1 {
		t.Errorf("rate left (0,1): %v", rate)
	}
	if rate < 0.99 {
		t.Errorf("rate should approach 1 after sustained success, got %v", rate)
	}
}

func TestStatistics_TopPatterns(t *testing.T) {
	a := New()

	patterns := map[string]int{
		"svc-a:TimeoutError":   3,
		"svc-b:RateLimitError": 7,
		"svc-c:Error":          1,
	}
	for key, n := range patterns {
		for i := 0; i < n; i++ {
			a.Analyze(errorCtx(key[:5], key[6:], "boom", domain.SeverityLow))
		}
	}

	stats := a.Statistics()

	if stats.TotalPatterns != 11 {
		t.Errorf("total = %d, want 11", stats.TotalPatterns)
	}
	if stats.TrackedPatterns != 3 {
		t.Errorf("tracked = %d, want 3", stats.TrackedPatterns)
	}
	if len(stats.TopPatterns) != 3 {
		t.Fatalf("top patterns = %d, want 3", len(stats.TopPatterns))
	}
	if stats.TopPatterns[0].Key != "svc-b:RateLimitError" || stats.TopPatterns[0].Count != 7 {
		t.Errorf("top pattern = %+v, want svc-b:RateLimitError x7", stats.TopPatterns[0])
	}
}
