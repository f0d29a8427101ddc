package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ndquoc/remedy/internal/core/domain"
	"github.com/ndquoc/remedy/internal/infra/storage"
)

// EpisodeRepo implements storage.EpisodeRepository using PostgreSQL.
type EpisodeRepo struct {
	db *DB
}

// NewEpisodeRepo creates a new PostgreSQL episode repository.
func NewEpisodeRepo(db *DB) *EpisodeRepo {
	return &EpisodeRepo{db: db}
}

// Insert persists a new audit row at failure detection time.
func (r *EpisodeRepo) Insert(ctx context.Context, entry *domain.AuditEntry) error {
	contextData, err := json.Marshal(entry.ContextData)
	if err != nil {
		return fmt.Errorf("failed to marshal context data: %w", err)
	}

	query := `
		INSERT INTO episodes (id, timestamp, error_type, error_message, service_name, operation, severity, recovery_attempts, context_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.Timestamp,
		entry.ErrorType,
		entry.ErrorMessage,
		entry.ServiceName,
		entry.Operation,
		string(entry.Severity),
		entry.RecoveryAttempts,
		contextData,
	)
	if err != nil {
		return fmt.Errorf("failed to insert episode: %w", err)
	}
	return nil
}

// UpdateOutcome records the terminal outcome on the row captured at insert.
// The row is addressed by ID only, never by re-deriving a match key.
func (r *EpisodeRepo) UpdateOutcome(ctx context.Context, id string, success bool, strategy domain.RecoveryStrategy, attempts int) error {
	query := `
		UPDATE episodes
		SET recovery_success = $2, recovery_strategy = $3, recovery_attempts = $4
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, success, string(strategy), attempts)
	if err != nil {
		return fmt.Errorf("failed to update episode outcome: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("episode %s: %w", id, storage.ErrEpisodeNotFound)
	}
	return nil
}

// Summarize aggregates episodes in the trailing window, grouped by
// (service, operation, error_type, strategy).
func (r *EpisodeRepo) Summarize(ctx context.Context, since time.Time) ([]domain.ReportGroup, error) {
	query := `
		SELECT service_name, operation, error_type,
		       COALESCE(recovery_strategy, '') AS recovery_strategy,
		       COUNT(*) AS count,
		       COUNT(*) FILTER (WHERE recovery_success) AS recovered,
		       MAX(timestamp) AS last_seen
		FROM episodes
		WHERE timestamp >= $1
		GROUP BY service_name, operation, error_type, recovery_strategy
		ORDER BY count DESC, service_name ASC
	`

	var rows []struct {
		ServiceName      string    `db:"service_name"`
		Operation        string    `db:"operation"`
		ErrorType        string    `db:"error_type"`
		RecoveryStrategy string    `db:"recovery_strategy"`
		Count            int       `db:"count"`
		Recovered        int       `db:"recovered"`
		LastSeen         time.Time `db:"last_seen"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("failed to summarize episodes: %w", err)
	}

	groups := make([]domain.ReportGroup, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, domain.ReportGroup{
			ServiceName:      row.ServiceName,
			Operation:        row.Operation,
			ErrorType:        row.ErrorType,
			RecoveryStrategy: domain.RecoveryStrategy(row.RecoveryStrategy),
			Count:            row.Count,
			Recovered:        row.Recovered,
			LastSeen:         row.LastSeen,
		})
	}
	return groups, nil
}

// CountSince returns the number of episodes in the trailing window.
func (r *EpisodeRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM episodes WHERE timestamp >= $1`, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count episodes: %w", err)
	}
	return count, nil
}

// Recent returns the newest episodes, most recent first.
func (r *EpisodeRepo) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id, timestamp, error_type, error_message, service_name, operation, severity, recovery_attempts, context_data, recovery_success, recovery_strategy
		FROM episodes
		ORDER BY timestamp DESC
		LIMIT $1
	`

	var rows []struct {
		ID               string         `db:"id"`
		Timestamp        time.Time      `db:"timestamp"`
		ErrorType        string         `db:"error_type"`
		ErrorMessage     string         `db:"error_message"`
		ServiceName      string         `db:"service_name"`
		Operation        string         `db:"operation"`
		Severity         string         `db:"severity"`
		RecoveryAttempts int            `db:"recovery_attempts"`
		ContextData      []byte         `db:"context_data"`
		RecoverySuccess  sql.NullBool   `db:"recovery_success"`
		RecoveryStrategy sql.NullString `db:"recovery_strategy"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to load recent episodes: %w", err)
	}

	entries := make([]*domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entry := &domain.AuditEntry{
			ID:               row.ID,
			Timestamp:        row.Timestamp,
			ErrorType:        row.ErrorType,
			ErrorMessage:     row.ErrorMessage,
			ServiceName:      row.ServiceName,
			Operation:        row.Operation,
			Severity:         domain.Severity(row.Severity),
			RecoveryAttempts: row.RecoveryAttempts,
		}
		if len(row.ContextData) > 0 {
			if err := json.Unmarshal(row.ContextData, &entry.ContextData); err != nil {
				entry.ContextData = nil
			}
		}
		if row.RecoverySuccess.Valid {
			success := row.RecoverySuccess.Bool
			entry.RecoverySuccess = &success
		}
		if row.RecoveryStrategy.Valid {
			entry.RecoveryStrategy = domain.RecoveryStrategy(row.RecoveryStrategy.String)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
