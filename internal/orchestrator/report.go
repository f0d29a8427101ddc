package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/ndquoc/remedy/internal/core/domain"
)

// ExportReport aggregates the audit log over the trailing window, grouped
// by (service, operation, error_type, strategy), joined with the current
// statistics snapshot. An empty audit store yields a zeroed report.
func (e *Engine) ExportReport(ctx context.Context, hours int) (*domain.ErrorReport, error) {
	report := &domain.ErrorReport{
		WindowHours: hours,
		GeneratedAt: time.Now(),
		Statistics:  e.Statistics(),
	}

	if e.audit == nil {
		return report, nil
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	total, err := e.audit.CountSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count episodes: %w", err)
	}
	report.TotalEpisodes = total

	groups, err := e.audit.Summarize(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize episodes: %w", err)
	}
	report.Groups = groups

	return report, nil
}
