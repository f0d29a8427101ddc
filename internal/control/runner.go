package control

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ndquoc/remedy/internal/core/domain"
	"github.com/ndquoc/remedy/internal/metrics"
	"github.com/ndquoc/remedy/internal/orchestrator"
	"github.com/ndquoc/remedy/internal/recovery"
)

// Task is one recurring unit of work driven by the adaptive scheduler.
type Task struct {
	Name            string
	DefaultInterval time.Duration
	Severity        domain.Severity
	Run             recovery.Operation
}

// Runner executes registered tasks on per-task timers. Every run feeds a
// performance sample back to the engine, which tunes the next interval;
// every failure is routed through HandleError with the task itself as the
// retry target.
type Runner struct {
	engine *orchestrator.Engine
	tasks  []Task

	inFlight atomic.Int64
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

// NewRunner creates a runner for the given tasks.
func NewRunner(engine *orchestrator.Engine, tasks []Task) *Runner {
	return &Runner{engine: engine, tasks: tasks}
}

// Start launches one loop per task. It returns immediately; loops stop when
// the context is cancelled or Stop is called.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	for _, task := range r.tasks {
		r.wg.Add(1)
		go func(task Task) {
			defer r.wg.Done()
			r.runLoop(ctx, task)
		}(task)
	}
}

// Stop cancels all task loops and waits for in-flight runs to finish.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Runner) runLoop(ctx context.Context, task Task) {
	interval := task.DefaultInterval
	slog.Info("Task loop started", "task", task.Name, "interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Task loop stopped", "task", task.Name)
			return
		case <-time.After(interval):
		}

		interval = r.runOnce(ctx, task)
	}
}

// runOnce executes the task, routes any failure through the recovery
// engine, and returns the tuned interval until the next run.
func (r *Runner) runOnce(ctx context.Context, task Task) time.Duration {
	r.inFlight.Add(1)
	start := time.Now()
	err := task.Run(ctx)
	elapsed := time.Since(start)
	r.inFlight.Add(-1)

	succeeded := err == nil
	if err != nil {
		slog.Warn("Task run failed", "task", task.Name, "error", err)
		succeeded = r.engine.HandleError(ctx, err, task.Name, "run", task.Run, task.Severity,
			map[string]string{"task": task.Name})
	}

	outcome := "failure"
	if succeeded {
		outcome = "success"
	}
	metrics.TaskRuns.WithLabelValues(task.Name, outcome).Inc()

	sample := domain.PerformanceSample{
		ExecutionTime: elapsed,
		LoadFactor:    r.loadFactor(),
	}
	if err != nil {
		sample.ErrorRate = 1
	}
	if succeeded {
		sample.SuccessRate = 1
	}

	return r.engine.OptimizeSchedule(task.Name, task.DefaultInterval, sample)
}

// loadFactor reports the share of tasks currently executing as the [0,1]
// busyness signal.
func (r *Runner) loadFactor() float64 {
	if len(r.tasks) == 0 {
		return 0
	}
	load := float64(r.inFlight.Load()) / float64(len(r.tasks))
	if load > 1 {
		load = 1
	}
	return load
}
