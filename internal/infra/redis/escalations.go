package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ndquoc/remedy/internal/core/domain"
)

// escalationTTL bounds how long an unacknowledged escalation is kept.
const escalationTTL = 7 * 24 * time.Hour

// EscalationQueue hands manual-intervention episodes to the external
// alerting collaborator. Entries are JSON blobs keyed per episode and
// indexed in a sorted set scored by detection time, so consumers drain
// oldest first.
type EscalationQueue struct {
	rdb *redis.Client
}

// NewEscalationQueue creates a queue on top of an existing client.
func NewEscalationQueue(client *Client) *EscalationQueue {
	return &EscalationQueue{rdb: client.rdb}
}

func queueKey() string {
	return "escalations:pending"
}

func entryKey(id string) string {
	return fmt.Sprintf("escalation:%s", id)
}

// Push enqueues an escalated episode.
func (q *EscalationQueue) Push(ctx context.Context, entry *domain.AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal escalation: %w", err)
	}

	if err := q.rdb.Set(ctx, entryKey(entry.ID), data, escalationTTL).Err(); err != nil {
		return fmt.Errorf("failed to set escalation: %w", err)
	}

	if err := q.rdb.ZAdd(ctx, queueKey(), redis.Z{
		Score:  float64(entry.Timestamp.Unix()),
		Member: entry.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to escalation queue: %w", err)
	}

	return nil
}

// List returns pending escalations, oldest first.
func (q *EscalationQueue) List(ctx context.Context) ([]*domain.AuditEntry, error) {
	ids, err := q.rdb.ZRange(ctx, queueKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	entries := make([]*domain.AuditEntry, 0, len(ids))
	for _, id := range ids {
		data, err := q.rdb.Get(ctx, entryKey(id)).Bytes()
		if err == redis.Nil {
			// Data expired but ID still in queue, remove it
			q.rdb.ZRem(ctx, queueKey(), id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get escalation: %w", err)
		}

		var entry domain.AuditEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}

	return entries, nil
}

// Ack removes an escalation once a human has handled it.
func (q *EscalationQueue) Ack(ctx context.Context, id string) error {
	if err := q.rdb.ZRem(ctx, queueKey(), id).Err(); err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}
	if err := q.rdb.Del(ctx, entryKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete escalation: %w", err)
	}
	return nil
}

// Count returns the number of pending escalations.
func (q *EscalationQueue) Count(ctx context.Context) (int, error) {
	count, err := q.rdb.ZCard(ctx, queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}
