package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ndquoc/remedy/internal/core/domain"
)

// ErrEpisodeNotFound is returned when an audit row doesn't exist
var ErrEpisodeNotFound = errors.New("episode not found")

// EpisodeRepository is the durable audit log of recovery episodes. Rows are
// inserted at detection and updated once with the outcome, addressed by the
// ID captured at insertion; nothing is ever deleted.
type EpisodeRepository interface {
	// Insert persists a new audit row
	Insert(ctx context.Context, entry *domain.AuditEntry) error

	// UpdateOutcome records the terminal outcome on an existing row
	UpdateOutcome(ctx context.Context, id string, success bool, strategy domain.RecoveryStrategy, attempts int) error

	// Summarize aggregates episodes since the given time, grouped by
	// (service, operation, error_type, strategy)
	Summarize(ctx context.Context, since time.Time) ([]domain.ReportGroup, error)

	// CountSince returns the number of episodes since the given time
	CountSince(ctx context.Context, since time.Time) (int, error)

	// Recent returns the newest episodes, most recent first
	Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
}
