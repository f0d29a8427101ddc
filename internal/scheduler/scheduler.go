// Package scheduler tunes the interval between repeated runs of a task
// from observed performance.
package scheduler

import (
	"sync"
	"time"

	"github.com/ndquoc/remedy/internal/core/domain"
)

const (
	// sampleCap bounds per-task history; oldest samples are evicted.
	sampleCap = 50

	// coldStartSamples is how much history a task needs before tuning
	// engages; below it the default interval is returned unchanged.
	coldStartSamples = 5

	// averageWindow is how many of the newest samples feed the tuning.
	averageWindow = 10
)

// Tuning thresholds. Each metric contributes at most one multiplier
// (first matching tier wins); multipliers from different metrics compound.
const (
	slowExecution    = 30 * time.Second
	slowFactor       = 1.5
	highErrorRate    = 0.2
	highErrorFactor  = 1.8
	someErrorRate    = 0.1
	someErrorFactor  = 1.3
	lowSuccessRate   = 0.7
	lowSuccessFactor = 1.5
	highLoad         = 0.8
	highLoadFactor   = 1.4
	idleLoad         = 0.3
	idleLoadFactor   = 0.8
)

// Bounds on the tuned interval relative to the default: slow tasks are
// spaced out at most 5x, idle tasks sped up at most 2x.
const (
	minIntervalRatio = 0.5
	maxIntervalRatio = 5.0
)

// Scheduler keeps a bounded performance history per task and derives each
// task's optimal run interval from it.
type Scheduler struct {
	mu        sync.Mutex
	samples   map[string][]domain.PerformanceSample
	intervals map[string]time.Duration
}

// New creates a scheduler with no task history.
func New() *Scheduler {
	return &Scheduler{
		samples:   make(map[string][]domain.PerformanceSample),
		intervals: make(map[string]time.Duration),
	}
}

// OptimalInterval appends the sample to the task's history and returns the
// recommended interval until the next run. Tasks still in cold start run at
// the default interval.
func (s *Scheduler) OptimalInterval(task string, defaultInterval time.Duration, sample domain.PerformanceSample) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.samples[task], sample)
	if len(history) > sampleCap {
		history = history[len(history)-sampleCap:]
	}
	s.samples[task] = history

	if len(history) < coldStartSamples {
		s.intervals[task] = defaultInterval
		return defaultInterval
	}

	window := history
	if len(window) > averageWindow {
		window = window[len(window)-averageWindow:]
	}

	var execSum time.Duration
	var errSum, succSum, loadSum float64
	for _, sm := range window {
		execSum += sm.ExecutionTime
		errSum += sm.ErrorRate
		succSum += sm.SuccessRate
		loadSum += sm.LoadFactor
	}
	n := float64(len(window))
	avgExec := time.Duration(float64(execSum) / n)
	avgErr := errSum / n
	avgSucc := succSum / n
	avgLoad := loadSum / n

	multiplier := 1.0
	if avgExec > slowExecution {
		multiplier *= slowFactor
	}
	switch {
	case avgErr > highErrorRate:
		multiplier *= highErrorFactor
	case avgErr > someErrorRate:
		multiplier *= someErrorFactor
	}
	if avgSucc < lowSuccessRate {
		multiplier *= lowSuccessFactor
	}
	switch {
	case avgLoad > highLoad:
		multiplier *= highLoadFactor
	case avgLoad < idleLoad:
		multiplier *= idleLoadFactor
	}

	interval := time.Duration(float64(defaultInterval) * multiplier)

	// Enforce bounds
	minInterval := time.Duration(float64(defaultInterval) * minIntervalRatio)
	maxInterval := time.Duration(float64(defaultInterval) * maxIntervalRatio)
	if interval < minInterval {
		interval = minInterval
	}
	if interval > maxInterval {
		interval = maxInterval
	}

	s.intervals[task] = interval
	return interval
}

// Interval returns the last computed interval for a task, if any.
func (s *Scheduler) Interval(task string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.intervals[task]
	return d, ok
}

// Statistics exposes tracked task names, their last computed interval and
// sample counts.
func (s *Scheduler) Statistics() domain.SchedulerStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make(map[string]domain.TaskScheduleInfo, len(s.samples))
	for name, history := range s.samples {
		tasks[name] = domain.TaskScheduleInfo{
			OptimalInterval: s.intervals[name],
			SampleCount:     len(history),
		}
	}
	return domain.SchedulerStatistics{Tasks: tasks}
}
