package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ndquoc/remedy/internal/core/domain"
)

// testExecutor returns an executor whose sleeps are recorded instead of
// performed.
func testExecutor() (*Executor, *[]time.Duration) {
	e := NewExecutor()
	slept := &[]time.Duration{}
	e.sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return ctx.Err()
	}
	return e, slept
}

// failNTimes returns an operation that fails its first n invocations and a
// counter of total invocations.
func failNTimes(n int) (Operation, *int) {
	calls := new(int)
	op := func(ctx context.Context) error {
		*calls++
		if *calls <= n {
			return errors.New("still broken")
		}
		return nil
	}
	return op, calls
}

func TestExecute_ImmediateRetry(t *testing.T) {
	e, slept := testExecutor()
	ectx := &domain.ErrorContext{ServiceName: "svc", Operation: "fetch"}
	action := domain.RecoveryAction{
		Strategy:    domain.StrategyImmediateRetry,
		MaxAttempts: 2,
		Delay:       1 * time.Second,
	}

	op, calls := failNTimes(1)
	success, err := e.Execute(context.Background(), ectx, action, op)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !success {
		t.Error("expected recovery to succeed on second attempt")
	}
	if *calls != 2 {
		t.Errorf("expected 2 invocations, got %d", *calls)
	}
	if ectx.RecoveryAttempts != 2 {
		t.Errorf("expected 2 recorded attempts, got %d", ectx.RecoveryAttempts)
	}
	// Fixed delay, no doubling.
	if len(*slept) != 1 || (*slept)[0] != 1*time.Second {
		t.Errorf("slept = %v, want [1s]", *slept)
	}
}

func TestExecute_BackoffDoublesDelay(t *testing.T) {
	e, slept := testExecutor()
	ectx := &domain.ErrorContext{ServiceName: "svc", Operation: "fetch"}
	action := domain.RecoveryAction{
		Strategy:    domain.StrategyExponentialBackoff,
		MaxAttempts: 3,
		Delay:       1 * time.Second,
	}

	op, calls := failNTimes(2)
	success, err := e.Execute(context.Background(), ectx, action, op)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !success {
		t.Error("expected recovery to succeed on third attempt")
	}
	if *calls != 3 {
		t.Errorf("expected 3 invocations, got %d", *calls)
	}
	// Sleeps 1s after the first failure, 2s after the second.
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept = %v, want %v", *slept, want)
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Errorf("sleep %d = %v, want %v", i, (*slept)[i], d)
		}
	}
}

func TestExecute_BackoffNoSleepAfterFinalAttempt(t *testing.T) {
	e, slept := testExecutor()
	ectx := &domain.ErrorContext{ServiceName: "svc", Operation: "fetch"}
	action := domain.RecoveryAction{
		Strategy:    domain.StrategyExponentialBackoff,
		MaxAttempts: 3,
		Delay:       1 * time.Second,
	}

	op, calls := failNTimes(10) // never succeeds within budget
	success, err := e.Execute(context.Background(), ectx, action, op)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if success {
		t.Error("expected recovery to fail")
	}
	if *calls != 3 {
		t.Errorf("expected 3 invocations, got %d", *calls)
	}
	// Two sleeps between three attempts, none after the last.
	if len(*slept) != 2 {
		t.Errorf("slept %d times, want 2: %v", len(*slept), *slept)
	}
}

func TestExecute_CircuitBreaker(t *testing.T) {
	e, slept := testExecutor()
	ectx := &domain.ErrorContext{ServiceName: "svc", Operation: "fetch"}
	action := domain.RecoveryAction{
		Strategy:    domain.StrategyCircuitBreaker,
		MaxAttempts: 1,
		Delay:       300 * time.Second,
	}

	op, calls := failNTimes(0)
	success, err := e.Execute(context.Background(), ectx, action, op)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !success {
		t.Error("expected probe to succeed")
	}
	// Full cool-down first, then exactly one probe.
	if len(*slept) != 1 || (*slept)[0] != 300*time.Second {
		t.Errorf("slept = %v, want [300s]", *slept)
	}
	if *calls != 1 {
		t.Errorf("expected exactly 1 probe, got %d", *calls)
	}
}

func TestExecute_SkipNeverInvokes(t *testing.T) {
	e, _ := testExecutor()
	ectx := &domain.ErrorContext{ServiceName: "svc", Operation: "fetch"}
	action := domain.RecoveryAction{Strategy: domain.StrategySkipAndContinue}

	op, calls := failNTimes(0)
	success, err := e.Execute(context.Background(), ectx, action, op)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !success {
		t.Error("skip should count as handled")
	}
	if *calls != 0 {
		t.Errorf("operation invoked %d times, want 0", *calls)
	}
}

func TestExecute_ManualIntervention(t *testing.T) {
	e, _ := testExecutor()
	ectx := &domain.ErrorContext{ServiceName: "svc", Operation: "fetch"}

	op, calls := failNTimes(0)
	success, err := e.Execute(context.Background(), ectx, domain.ManualIntervention(), op)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if success {
		t.Error("manual intervention must not report success")
	}
	if *calls != 0 {
		t.Errorf("operation invoked %d times, want 0", *calls)
	}
}

func TestExecute_UnknownStrategy(t *testing.T) {
	e, _ := testExecutor()
	ectx := &domain.ErrorContext{ServiceName: "svc", Operation: "fetch"}
	action := domain.RecoveryAction{Strategy: "mystery_strategy"}

	op, _ := failNTimes(0)
	success, err := e.Execute(context.Background(), ectx, action, op)
	if err == nil {
		t.Fatal("expected error for unknown strategy")
	}
	if success {
		t.Error("unknown strategy must not report success")
	}
}

func TestExecute_FallbackService(t *testing.T) {
	e, _ := testExecutor()
	ectx := &domain.ErrorContext{ServiceName: "payments", Operation: "charge"}
	action := domain.RecoveryAction{Strategy: domain.StrategyFallbackService, Fallback: "payments-backup"}

	// Unregistered fallback fails.
	success, err := e.Execute(context.Background(), ectx, action, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if success {
		t.Error("expected failure with no fallback registered")
	}

	called := false
	e.RegisterFallback("payments-backup", func(ctx context.Context) error {
		called = true
		return nil
	})

	success, err = e.Execute(context.Background(), ectx, action, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !success {
		t.Error("expected registered fallback to succeed")
	}
	if !called {
		t.Error("fallback operation was not invoked")
	}
}

func TestExecute_PanickingOperation(t *testing.T) {
	e, _ := testExecutor()
	ectx := &domain.ErrorContext{ServiceName: "svc", Operation: "fetch"}
	action := domain.RecoveryAction{
		Strategy:    domain.StrategyImmediateRetry,
		MaxAttempts: 2,
		Delay:       1 * time.Second,
	}

	success, err := e.Execute(context.Background(), ectx, action, func(ctx context.Context) error {
		panic("boom")
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if success {
		t.Error("panicking operation must count as failed")
	}
}

func TestExecute_CancelledContextStopsRetries(t *testing.T) {
	e := NewExecutor() // real sleep, cancelled context short-circuits it
	ectx := &domain.ErrorContext{ServiceName: "svc", Operation: "fetch"}
	action := domain.RecoveryAction{
		Strategy:    domain.StrategyExponentialBackoff,
		MaxAttempts: 3,
		Delay:       time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	op, calls := failNTimes(10)
	start := time.Now()
	success, err := e.Execute(ctx, ectx, action, op)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if success {
		t.Error("expected failure under cancelled context")
	}
	if *calls != 1 {
		t.Errorf("expected 1 invocation before abandoning, got %d", *calls)
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled context should not wait out the delay")
	}
}
