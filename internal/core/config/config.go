package config

import (
	"time"

	"github.com/ndquoc/remedy/internal/core/domain"
	redisclient "github.com/ndquoc/remedy/internal/infra/redis"
	"github.com/ndquoc/remedy/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
	Redis    redisclient.Config `yaml:"redis"`
	Tasks    []TaskConfig       `yaml:"tasks"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TaskConfig holds scheduling settings for one recurring task. The task's
// operation is registered in code; config carries its default interval and
// the severity its failures are handled with.
type TaskConfig struct {
	Name     string        `yaml:"name"`
	Interval time.Duration `yaml:"interval"`
	Severity string        `yaml:"severity"`
}

// TaskSeverity maps the configured severity string to the domain type,
// defaulting to medium.
func (t TaskConfig) TaskSeverity() domain.Severity {
	switch t.Severity {
	case "low":
		return domain.SeverityLow
	case "high":
		return domain.SeverityHigh
	case "critical":
		return domain.SeverityCritical
	default:
		return domain.SeverityMedium
	}
}
