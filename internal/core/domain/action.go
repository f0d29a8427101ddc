package domain

import "time"

// RecoveryStrategy names a policy for retrying a failed operation.
type RecoveryStrategy string

const (
	StrategyImmediateRetry     RecoveryStrategy = "immediate_retry"
	StrategyExponentialBackoff RecoveryStrategy = "exponential_backoff"
	StrategyCircuitBreaker     RecoveryStrategy = "circuit_breaker"
	StrategyFallbackService    RecoveryStrategy = "fallback_service"
	StrategySkipAndContinue    RecoveryStrategy = "skip_and_continue"
	StrategyManualIntervention RecoveryStrategy = "manual_intervention"
)

// RecoveryAction is the remediation policy chosen for a failure.
type RecoveryAction struct {
	Strategy         RecoveryStrategy
	MaxAttempts      int
	Delay            time.Duration
	SuccessThreshold float64
	Fallback         string
}

// ManualIntervention returns the escalation action. It always carries zero
// attempts and zero delay and is never auto-executed.
func ManualIntervention() RecoveryAction {
	return RecoveryAction{
		Strategy:         StrategyManualIntervention,
		MaxAttempts:      0,
		Delay:            0,
		SuccessThreshold: 1.0,
	}
}
