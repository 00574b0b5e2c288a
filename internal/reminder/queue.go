// Package reminder sends deadline reminders for tasks due the next day.
//
// A Scanner finds the due tasks and enqueues one job per task; a Worker pulls
// the jobs and hands each task to a Notifier.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// QueueKey is the Redis list holding pending reminder jobs.
const QueueKey = "pms:reminders"

// ErrEmpty is returned by Dequeue when no job arrived within the timeout.
var ErrEmpty = errors.New("reminder queue is empty")

// Queue is a FIFO of task ids awaiting a reminder.
type Queue interface {
	Enqueue(ctx context.Context, taskID uuid.UUID) error
	// Dequeue blocks up to timeout for the next job.
	Dequeue(ctx context.Context, timeout time.Duration) (uuid.UUID, error)
}

// RedisQueue keeps jobs in a Redis list so several processes can share them.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = QueueKey
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, taskID uuid.UUID) error {
	if err := q.client.LPush(ctx, q.key, taskID.String()).Err(); err != nil {
		return fmt.Errorf("enqueue reminder: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (uuid.UUID, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrEmpty
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("dequeue reminder: %w", err)
	}
	// BRPOP replies with [key, value]
	id, err := uuid.Parse(res[1])
	if err != nil {
		return uuid.Nil, fmt.Errorf("malformed reminder job %q: %w", res[1], err)
	}
	return id, nil
}

// MemoryQueue is an in-process queue used when no Redis address is configured.
type MemoryQueue struct {
	jobs chan uuid.UUID
}

func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{jobs: make(chan uuid.UUID, size)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, taskID uuid.UUID) error {
	select {
	case q.jobs <- taskID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context, timeout time.Duration) (uuid.UUID, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case id := <-q.jobs:
		return id, nil
	case <-timer.C:
		return uuid.Nil, ErrEmpty
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}
