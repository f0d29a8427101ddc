package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ErrorsHandled tracks failures routed through the engine
	ErrorsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remedy_errors_handled_total",
			Help: "Total number of errors handled",
		},
		[]string{"service", "error_type"},
	)

	// RecoveriesTotal tracks recovery outcomes per strategy
	RecoveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remedy_recoveries_total",
			Help: "Total number of recovery executions",
		},
		[]string{"strategy", "outcome"},
	)

	// RecoveryDuration tracks how long one recovery episode takes
	RecoveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remedy_recovery_duration_seconds",
			Help:    "Recovery episode duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		},
		[]string{"strategy"},
	)

	// ManualInterventions tracks episodes escalated to a human
	ManualInterventions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remedy_manual_interventions_total",
			Help: "Total number of episodes escalated for manual intervention",
		},
		[]string{"service"},
	)

	// AuditFailures tracks swallowed audit persistence errors
	AuditFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remedy_audit_failures_total",
			Help: "Total number of audit log persistence failures",
		},
	)

	// DispatchFailures tracks unrecognized-strategy dispatch errors
	DispatchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remedy_dispatch_failures_total",
			Help: "Total number of unrecognized strategy dispatch failures",
		},
	)

	// TaskInterval tracks the current optimal interval per task
	TaskInterval = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "remedy_task_interval_seconds",
			Help: "Current optimal interval per scheduled task",
		},
		[]string{"task"},
	)

	// TaskRuns tracks scheduled task executions
	TaskRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remedy_task_runs_total",
			Help: "Total number of scheduled task runs",
		},
		[]string{"task", "outcome"},
	)

	// DBConnectionPoolUsage tracks database pool utilization
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "remedy_db_connection_pool_usage",
			Help: "Database connection pool usage percentage",
		},
	)
)
