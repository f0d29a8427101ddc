// Package orchestrator ties the analyzer, executor, scheduler and audit log
// into the engine's single entry point.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ndquoc/remedy/internal/analyzer"
	"github.com/ndquoc/remedy/internal/core/domain"
	"github.com/ndquoc/remedy/internal/infra/storage"
	"github.com/ndquoc/remedy/internal/metrics"
	"github.com/ndquoc/remedy/internal/recovery"
	"github.com/ndquoc/remedy/internal/scheduler"
)

// EscalationSink receives episodes that need a human. Push failures are
// treated like audit failures: logged, never surfaced to the caller.
type EscalationSink interface {
	Push(ctx context.Context, entry *domain.AuditEntry) error
}

// Engine is the composition root of the recovery engine. Construct one per
// process and inject it; there is no package-level singleton.
type Engine struct {
	analyzer    *analyzer.Analyzer
	executor    *recovery.Executor
	scheduler   *scheduler.Scheduler
	audit       storage.EpisodeRepository
	escalations EscalationSink

	mu       sync.Mutex
	counters domain.RecoveryCounters

	startTime time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithEscalationSink routes manual-intervention episodes to an external
// alerting collaborator.
func WithEscalationSink(sink EscalationSink) Option {
	return func(e *Engine) {
		e.escalations = sink
	}
}

// WithExecutor replaces the default executor, e.g. to pre-register
// fallback operations.
func WithExecutor(ex *recovery.Executor) Option {
	return func(e *Engine) {
		e.executor = ex
	}
}

// New creates an engine persisting its audit trail to the given repository.
func New(audit storage.EpisodeRepository, opts ...Option) *Engine {
	e := &Engine{
		analyzer:  analyzer.New(),
		executor:  recovery.NewExecutor(),
		scheduler: scheduler.New(),
		audit:     audit,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Executor exposes the executor for fallback registration.
func (e *Engine) Executor() *recovery.Executor {
	return e.executor
}

// HandleError runs one recovery episode end to end: classify the failure,
// execute the chosen policy against op, learn from the outcome, and audit
// the episode. The returned bool is the recovery outcome; nothing internal
// to the episode escapes past it.
func (e *Engine) HandleError(ctx context.Context, opErr error, service, operation string, op recovery.Operation, severity domain.Severity, contextData map[string]string) bool {
	start := time.Now()

	ectx := domain.NewErrorContext(opErr, service, operation, severity, contextData)
	episode := &domain.Episode{
		ID:    uuid.New().String(),
		State: domain.StateDetected,
		Ctx:   ectx,
	}

	e.mu.Lock()
	e.counters.ErrorsHandled++
	e.mu.Unlock()
	metrics.ErrorsHandled.WithLabelValues(service, ectx.ErrorType).Inc()

	action := e.analyzer.Analyze(ectx)
	_ = episode.Transition(domain.StateAnalyzed)

	slog.Info("Handling error",
		"episode", episode.ID,
		"service", service,
		"operation", operation,
		"error_type", ectx.ErrorType,
		"severity", severity,
		"strategy", action.Strategy,
	)

	// Audit row is inserted before execution; its ID addresses the later
	// outcome update.
	e.insertAudit(ctx, episode, action)

	var success bool
	if action.Strategy == domain.StrategyManualIntervention {
		_ = episode.Transition(domain.StateEscalated)
		e.escalate(ctx, episode, action)
	} else {
		_ = episode.Transition(domain.StateExecuting)

		var dispatchErr error
		success, dispatchErr = e.executor.Execute(ctx, ectx, action, op)
		if dispatchErr != nil {
			// Engine bug, not an operation failure: surface loudly and
			// count the episode as a failed recovery.
			slog.Error("Recovery dispatch failed",
				"episode", episode.ID,
				"strategy", action.Strategy,
				"error", dispatchErr,
			)
			metrics.DispatchFailures.Inc()
			success = false
		}

		if success {
			_ = episode.Transition(domain.StateRecovered)
		} else {
			_ = episode.Transition(domain.StateUnrecovered)
		}

		e.analyzer.RecordOutcome(ectx, action, success)

		e.mu.Lock()
		if success {
			e.counters.SuccessfulRecoveries++
		} else {
			e.counters.FailedRecoveries++
		}
		e.mu.Unlock()
	}

	e.updateAudit(ctx, episode, action, success)

	outcome := "failure"
	if success {
		outcome = "success"
	}
	metrics.RecoveriesTotal.WithLabelValues(string(action.Strategy), outcome).Inc()
	metrics.RecoveryDuration.WithLabelValues(string(action.Strategy)).Observe(time.Since(start).Seconds())

	slog.Info("Episode finished",
		"episode", episode.ID,
		"state", episode.State,
		"attempts", ectx.RecoveryAttempts,
		"success", success,
	)

	return success
}

// escalate counts and hands off a manual-intervention episode. The critical
// log line is the signal an external alerting collaborator watches for.
func (e *Engine) escalate(ctx context.Context, episode *domain.Episode, action domain.RecoveryAction) {
	e.mu.Lock()
	e.counters.ManualInterventions++
	e.mu.Unlock()
	metrics.ManualInterventions.WithLabelValues(episode.Ctx.ServiceName).Inc()

	slog.Error("Manual intervention required",
		"episode", episode.ID,
		"service", episode.Ctx.ServiceName,
		"operation", episode.Ctx.Operation,
		"error_type", episode.Ctx.ErrorType,
		"error", episode.Ctx.ErrorMessage,
	)

	if e.escalations == nil {
		return
	}
	if err := e.escalations.Push(ctx, auditEntry(episode, action)); err != nil {
		slog.Warn("Failed to push escalation", "episode", episode.ID, "error", err)
	}
}

// OptimizeSchedule feeds a performance sample to the adaptive scheduler and
// returns the recommended interval until the task's next run.
func (e *Engine) OptimizeSchedule(task string, defaultInterval time.Duration, sample domain.PerformanceSample) time.Duration {
	interval := e.scheduler.OptimalInterval(task, defaultInterval, sample)
	metrics.TaskInterval.WithLabelValues(task).Set(interval.Seconds())
	return interval
}

// Statistics merges recovery counters, analyzer statistics, scheduler
// statistics and process uptime into one snapshot.
func (e *Engine) Statistics() domain.EngineStatistics {
	e.mu.Lock()
	counters := e.counters
	e.mu.Unlock()

	return domain.EngineStatistics{
		Recovery:  counters,
		Analyzer:  e.analyzer.Statistics(),
		Scheduler: e.scheduler.Statistics(),
		Uptime:    time.Since(e.startTime),
	}
}

func auditEntry(episode *domain.Episode, action domain.RecoveryAction) *domain.AuditEntry {
	ectx := episode.Ctx
	return &domain.AuditEntry{
		ID:               episode.ID,
		Timestamp:        ectx.Timestamp,
		ErrorType:        ectx.ErrorType,
		ErrorMessage:     ectx.ErrorMessage,
		ServiceName:      ectx.ServiceName,
		Operation:        ectx.Operation,
		Severity:         ectx.Severity,
		RecoveryAttempts: ectx.RecoveryAttempts,
		ContextData:      ectx.ContextData,
		RecoveryStrategy: action.Strategy,
	}
}

// insertAudit persists the pre-execution row. Audit completeness is
// subordinate to recovery correctness: failures are logged and swallowed.
func (e *Engine) insertAudit(ctx context.Context, episode *domain.Episode, action domain.RecoveryAction) {
	if e.audit == nil {
		return
	}
	entry := auditEntry(episode, action)
	entry.RecoveryStrategy = ""
	if err := e.audit.Insert(ctx, entry); err != nil {
		slog.Warn("Failed to insert audit row", "episode", episode.ID, "error", err)
		metrics.AuditFailures.Inc()
	}
}

func (e *Engine) updateAudit(ctx context.Context, episode *domain.Episode, action domain.RecoveryAction, success bool) {
	if e.audit == nil {
		return
	}
	err := e.audit.UpdateOutcome(ctx, episode.ID, success, action.Strategy, episode.Ctx.RecoveryAttempts)
	if err != nil {
		slog.Warn("Failed to update audit row", "episode", episode.ID, "error", err)
		metrics.AuditFailures.Inc()
	}
}
