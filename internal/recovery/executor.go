// Package recovery executes a chosen recovery policy against a
// caller-supplied idempotent operation.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ndquoc/remedy/internal/core/domain"
)

// Operation is one idempotent unit of work to retry. A nil return means the
// operation succeeded.
type Operation func(ctx context.Context) error

// Executor runs recovery strategies. Each episode owns its own context and
// action; the executor itself only holds the fallback registry.
type Executor struct {
	mu        sync.RWMutex
	fallbacks map[string]Operation

	// sleep is swapped out in tests to observe scheduled delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor with an empty fallback registry.
func NewExecutor() *Executor {
	return &Executor{
		fallbacks: make(map[string]Operation),
		sleep:     sleepCtx,
	}
}

// RegisterFallback routes fallback_service recoveries for the named service
// to an alternate operation.
func (e *Executor) RegisterFallback(service string, op Operation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fallbacks[service] = op
}

// Execute runs the action's strategy against op and returns whether the
// recovery succeeded. The error is non-nil only for an unrecognized
// strategy, which signals an engine bug rather than an operation failure.
func (e *Executor) Execute(ctx context.Context, ectx *domain.ErrorContext, action domain.RecoveryAction, op Operation) (bool, error) {
	switch action.Strategy {
	case domain.StrategyImmediateRetry:
		return e.retryLoop(ctx, ectx, action, op, false), nil
	case domain.StrategyExponentialBackoff:
		return e.retryLoop(ctx, ectx, action, op, true), nil
	case domain.StrategyCircuitBreaker:
		return e.circuitBreaker(ctx, ectx, action, op), nil
	case domain.StrategySkipAndContinue:
		// Skipped work counts as handled; the operation is never invoked.
		slog.Info("Skipping failed operation",
			"service", ectx.ServiceName,
			"operation", ectx.Operation,
		)
		return true, nil
	case domain.StrategyFallbackService:
		return e.fallbackService(ctx, ectx, action), nil
	case domain.StrategyManualIntervention:
		// Fail-closed escalation boundary; never auto-executed.
		return false, nil
	default:
		return false, fmt.Errorf("unrecognized recovery strategy %q", action.Strategy)
	}
}

// retryLoop tries op up to MaxAttempts times, sleeping between attempts.
// With doubling enabled the delay doubles after every sleep, starting from
// the action's base delay.
func (e *Executor) retryLoop(ctx context.Context, ectx *domain.ErrorContext, action domain.RecoveryAction, op Operation, doubling bool) bool {
	delay := action.Delay

	for attempt := 1; attempt <= action.MaxAttempts; attempt++ {
		ectx.RecoveryAttempts++

		err := e.invoke(ctx, op)
		if err == nil {
			return true
		}
		slog.Warn("Recovery attempt failed",
			"service", ectx.ServiceName,
			"operation", ectx.Operation,
			"strategy", action.Strategy,
			"attempt", attempt,
			"error", err,
		)

		if attempt == action.MaxAttempts {
			break
		}
		if err := e.sleep(ctx, delay); err != nil {
			return false
		}
		if doubling {
			delay *= 2
		}
	}

	return false
}

// circuitBreaker waits out the full cool-down once, then makes exactly one
// probe call. The breaker keeps no state across calls; the next failure
// goes back through the analyzer to reopen it.
func (e *Executor) circuitBreaker(ctx context.Context, ectx *domain.ErrorContext, action domain.RecoveryAction, op Operation) bool {
	slog.Info("Circuit breaker cooling down",
		"service", ectx.ServiceName,
		"operation", ectx.Operation,
		"delay", action.Delay,
	)
	if err := e.sleep(ctx, action.Delay); err != nil {
		return false
	}

	ectx.RecoveryAttempts++
	if err := e.invoke(ctx, op); err != nil {
		slog.Warn("Circuit breaker probe failed",
			"service", ectx.ServiceName,
			"operation", ectx.Operation,
			"error", err,
		)
		return false
	}
	return true
}

// fallbackService routes to the alternate operation registered for the
// action's fallback reference, or the failing service itself.
func (e *Executor) fallbackService(ctx context.Context, ectx *domain.ErrorContext, action domain.RecoveryAction) bool {
	name := action.Fallback
	if name == "" {
		name = ectx.ServiceName
	}

	e.mu.RLock()
	op, ok := e.fallbacks[name]
	e.mu.RUnlock()
	if !ok {
		slog.Warn("No fallback registered", "service", name)
		return false
	}

	ectx.RecoveryAttempts++
	if err := e.invoke(ctx, op); err != nil {
		slog.Warn("Fallback operation failed", "service", name, "error", err)
		return false
	}
	return true
}

// invoke runs one attempt, converting a panic inside the operation into a
// failed attempt so a broken target can never take the executor down.
func (e *Executor) invoke(ctx context.Context, op Operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return op(ctx)
}

// sleepCtx waits for d, yielding early if the episode is abandoned.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
