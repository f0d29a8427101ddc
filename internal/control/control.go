// Package control wires the engine, storage, escalation queue, task runner
// and health server into one application lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/ndquoc/remedy/internal/core/config"
	"github.com/ndquoc/remedy/internal/health"
	redisclient "github.com/ndquoc/remedy/internal/infra/redis"
	"github.com/ndquoc/remedy/internal/infra/storage"
	"github.com/ndquoc/remedy/internal/infra/storage/memory"
	"github.com/ndquoc/remedy/internal/infra/storage/postgres"
	"github.com/ndquoc/remedy/internal/orchestrator"
)

// App is the main application struct that manages the engine lifecycle.
type App struct {
	cfg          *config.AppConfig
	engine       *orchestrator.Engine
	runner       *Runner
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// NewApp creates an App with all dependencies initialized. Tasks are
// registered separately, before Start.
func NewApp(cfg *config.AppConfig) (*App, error) {

	// 1. Initialize Storage
	var audit storage.EpisodeRepository
	var db *postgres.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Run migrations. Goose needs the raw *sql.DB under sqlx.
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		audit = postgres.NewEpisodeRepo(db)
		slog.Info("Using PostgreSQL audit storage")
	} else {
		audit = memory.NewEpisodeRepo()
		slog.Info("Using Memory audit storage")
	}

	// 2. Initialize Redis escalation queue
	var redisClient *redisclient.Client
	opts := []orchestrator.Option{}

	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, escalation queue disabled", "error", err)
		} else {
			opts = append(opts, orchestrator.WithEscalationSink(redisclient.NewEscalationQueue(redisClient)))
			slog.Info("Escalation queue initialized")
		}
	}

	// 3. Initialize Engine and Runner
	engine := orchestrator.New(audit, opts...)
	runner := NewRunner(engine, nil)

	healthServer := health.NewServer(engine, cfg.Server.Port)

	return &App{
		cfg:          cfg,
		engine:       engine,
		runner:       runner,
		healthServer: healthServer,
		db:           db,
		redisClient:  redisClient,
		log:          slog.Default(),
	}, nil
}

// Engine exposes the engine for fallback registration and reporting.
func (a *App) Engine() *orchestrator.Engine {
	return a.engine
}

// RegisterTasks adds tasks to the runner. Must be called before Start.
func (a *App) RegisterTasks(tasks ...Task) {
	a.runner.tasks = append(a.runner.tasks, tasks...)
}

// Start starts the app and all its components.
func (a *App) Start(ctx context.Context) error {
	// Start Health Server
	go func() {
		if err := a.healthServer.Start(); err != nil {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	// Start DB Metrics Collector
	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	// Start Task Loops
	a.runner.Start(ctx)

	return nil
}

// Stop stops the app.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping app...")

	a.runner.Stop()

	// Close Redis
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}

	// Stop Health Server
	return a.healthServer.Stop(ctx)
}

// TasksFromConfig builds runner tasks by joining configured schedules with
// the registered operations. Configured tasks without an operation are
// skipped with a warning.
func TasksFromConfig(cfgs []config.TaskConfig, ops map[string]func(context.Context) error) []Task {
	tasks := make([]Task, 0, len(cfgs))
	for _, tc := range cfgs {
		op, ok := ops[tc.Name]
		if !ok {
			slog.Warn("No operation registered for configured task", "task", tc.Name)
			continue
		}
		tasks = append(tasks, Task{
			Name:            tc.Name,
			DefaultInterval: tc.Interval,
			Severity:        tc.TaskSeverity(),
			Run:             op,
		})
	}
	return tasks
}
