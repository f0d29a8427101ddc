package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ndquoc/remedy/internal/core/domain"
	"github.com/ndquoc/remedy/internal/infra/storage"
)

// EpisodeRepo implements storage.EpisodeRepository in memory. It backs
// db-less runs and tests.
type EpisodeRepo struct {
	mu       sync.RWMutex
	episodes map[string]*domain.AuditEntry
	order    []string
}

// NewEpisodeRepo creates an empty in-memory episode repository.
func NewEpisodeRepo() *EpisodeRepo {
	return &EpisodeRepo{
		episodes: make(map[string]*domain.AuditEntry),
	}
}

func (r *EpisodeRepo) Insert(ctx context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *entry
	r.episodes[entry.ID] = &clone
	r.order = append(r.order, entry.ID)
	return nil
}

func (r *EpisodeRepo) UpdateOutcome(ctx context.Context, id string, success bool, strategy domain.RecoveryStrategy, attempts int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.episodes[id]
	if !ok {
		return storage.ErrEpisodeNotFound
	}
	outcome := success
	entry.RecoverySuccess = &outcome
	entry.RecoveryStrategy = strategy
	entry.RecoveryAttempts = attempts
	return nil
}

func (r *EpisodeRepo) Summarize(ctx context.Context, since time.Time) ([]domain.ReportGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type groupKey struct {
		service, operation, errorType string
		strategy                      domain.RecoveryStrategy
	}
	grouped := make(map[groupKey]*domain.ReportGroup)

	for _, entry := range r.episodes {
		if entry.Timestamp.Before(since) {
			continue
		}
		key := groupKey{entry.ServiceName, entry.Operation, entry.ErrorType, entry.RecoveryStrategy}
		g, ok := grouped[key]
		if !ok {
			g = &domain.ReportGroup{
				ServiceName:      entry.ServiceName,
				Operation:        entry.Operation,
				ErrorType:        entry.ErrorType,
				RecoveryStrategy: entry.RecoveryStrategy,
			}
			grouped[key] = g
		}
		g.Count++
		if entry.RecoverySuccess != nil && *entry.RecoverySuccess {
			g.Recovered++
		}
		if entry.Timestamp.After(g.LastSeen) {
			g.LastSeen = entry.Timestamp
		}
	}

	groups := make([]domain.ReportGroup, 0, len(grouped))
	for _, g := range grouped {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].ServiceName < groups[j].ServiceName
	})
	return groups, nil
}

func (r *EpisodeRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, entry := range r.episodes {
		if !entry.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *EpisodeRepo) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*domain.AuditEntry, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0 && len(entries) < limit; i-- {
		if entry, ok := r.episodes[r.order[i]]; ok {
			clone := *entry
			entries = append(entries, &clone)
		}
	}
	return entries, nil
}

// Get returns a stored entry by ID, for tests.
func (r *EpisodeRepo) Get(id string) (*domain.AuditEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.episodes[id]
	if !ok {
		return nil, false
	}
	clone := *entry
	return &clone, true
}
