package domain

import "time"

// ReportGroup is one aggregated line of the error report: all episodes
// sharing (service, operation, error_type, strategy) inside the window.
type ReportGroup struct {
	ServiceName      string
	Operation        string
	ErrorType        string
	RecoveryStrategy RecoveryStrategy
	Count            int
	Recovered        int
	LastSeen         time.Time
}

// ErrorReport aggregates the audit log over a trailing window together with
// the engine statistics snapshot current at export time.
type ErrorReport struct {
	WindowHours   int
	GeneratedAt   time.Time
	TotalEpisodes int
	Groups        []ReportGroup
	Statistics    EngineStatistics
}

// RecoveryCounters are the orchestrator's cumulative totals.
type RecoveryCounters struct {
	ErrorsHandled        int
	SuccessfulRecoveries int
	FailedRecoveries     int
	ManualInterventions  int
}

// PatternFrequency pairs a (service, error_type) key with its occurrence
// count, for the top-pattern listing.
type PatternFrequency struct {
	Key   string
	Count int
}

// AnalyzerStatistics is the analyzer's view of observed failures.
type AnalyzerStatistics struct {
	TotalPatterns    int
	PatternCounts    map[string]int
	TopPatterns      []PatternFrequency
	SuccessRates     map[string]float64
	TrackedPatterns  int
	WindowedPatterns int
}

// TaskScheduleInfo describes one task the scheduler is tuning.
type TaskScheduleInfo struct {
	OptimalInterval time.Duration
	SampleCount     int
}

// SchedulerStatistics is the scheduler's view of tracked tasks.
type SchedulerStatistics struct {
	Tasks map[string]TaskScheduleInfo
}

// EngineStatistics merges all component statistics with process uptime.
type EngineStatistics struct {
	Recovery  RecoveryCounters
	Analyzer  AnalyzerStatistics
	Scheduler SchedulerStatistics
	Uptime    time.Duration
}
