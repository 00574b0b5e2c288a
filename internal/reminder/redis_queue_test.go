package reminder_test

import (
	"context"
	"testing"
	"time"

	"pms/internal/reminder"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requires Redis on localhost:6379
const testRedisAddr = "localhost:6379"

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	t.Cleanup(func() { client.Close() })
	return client
}

func setupRedisQueue(t *testing.T) *reminder.RedisQueue {
	t.Helper()
	client := setupRedis(t)
	key := "pms:test:reminders:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), key) })
	return reminder.NewRedisQueue(client, key)
}

func TestRedisQueue_FIFO(t *testing.T) {
	q := setupRedisQueue(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, q.Enqueue(ctx, a))
	require.NoError(t, q.Enqueue(ctx, b))

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, a, got)
	got, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestRedisQueue_EmptyTimesOut(t *testing.T) {
	q := setupRedisQueue(t)

	_, err := q.Dequeue(context.Background(), time.Second)

	assert.ErrorIs(t, err, reminder.ErrEmpty)
}

func TestRedisLedger_ClaimOnce(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	prefix := "pms:test:reminded:" + uuid.NewString() + ":"
	ledger := reminder.NewRedisLedger(client, prefix)
	id := uuid.New()
	due := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	t.Cleanup(func() { client.Del(ctx, prefix+id.String()+":2025-03-11") })

	fresh, err := ledger.Claim(ctx, id, due)
	require.NoError(t, err)
	assert.True(t, fresh)

	// другая реплика с тем же префиксом
	fresh, err = reminder.NewRedisLedger(client, prefix).Claim(ctx, id, due)
	require.NoError(t, err)
	assert.False(t, fresh)

	require.NoError(t, ledger.Release(ctx, id, due))
	fresh, err = ledger.Claim(ctx, id, due)
	require.NoError(t, err)
	assert.True(t, fresh)
}
