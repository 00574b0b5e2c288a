package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pms/internal/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LedgerPrefix namespaces the Redis keys of sent reminders.
const LedgerPrefix = "pms:reminded:"

// ledgerTTL outlives the day a claim is for.
const ledgerTTL = 48 * time.Hour

// Ledger records which task reminders were already queued for a due day, so a
// restarted scheduler or a second replica does not remind twice.
type Ledger interface {
	// Claim marks the reminder as queued and reports false if it already was.
	Claim(ctx context.Context, taskID uuid.UUID, due time.Time) (bool, error)
	// Release undoes a claim whose job could not be queued.
	Release(ctx context.Context, taskID uuid.UUID, due time.Time) error
}

// RedisLedger keeps claims in Redis, shared by every process using the same server.
type RedisLedger struct {
	client *redis.Client
	prefix string
}

func NewRedisLedger(client *redis.Client, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = LedgerPrefix
	}
	return &RedisLedger{client: client, prefix: prefix}
}

func (l *RedisLedger) Claim(ctx context.Context, taskID uuid.UUID, due time.Time) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(taskID, due), 1, ledgerTTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim reminder: %w", err)
	}
	return ok, nil
}

func (l *RedisLedger) Release(ctx context.Context, taskID uuid.UUID, due time.Time) error {
	if err := l.client.Del(ctx, l.key(taskID, due)).Err(); err != nil {
		return fmt.Errorf("release reminder: %w", err)
	}
	return nil
}

func (l *RedisLedger) key(taskID uuid.UUID, due time.Time) string {
	return l.prefix + taskID.String() + ":" + validation.Day(due).Format(validation.DateLayout)
}

// MemoryLedger keeps claims in-process; it only deduplicates within one process.
type MemoryLedger struct {
	mu      sync.Mutex
	claimed map[uuid.UUID]time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{claimed: make(map[uuid.UUID]time.Time)}
}

func (l *MemoryLedger) Claim(_ context.Context, taskID uuid.UUID, due time.Time) (bool, error) {
	due = validation.Day(due)

	l.mu.Lock()
	defer l.mu.Unlock()
	if day, ok := l.claimed[taskID]; ok && day.Equal(due) {
		return false, nil
	}
	l.claimed[taskID] = due
	return true, nil
}

func (l *MemoryLedger) Release(_ context.Context, taskID uuid.UUID, due time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if day, ok := l.claimed[taskID]; ok && day.Equal(validation.Day(due)) {
		delete(l.claimed, taskID)
	}
	return nil
}
