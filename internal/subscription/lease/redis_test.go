package lease

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real redis when SHOPDESK_TEST_REDIS_ADDR is set.
func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("SHOPDESK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SHOPDESK_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	l := NewRedisLocker(client)
	key := "shopdesk:test:" + uuid.NewString()

	release, err := l.Acquire(ctx, key, 2*time.Second)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, key, 2*time.Second)
	assert.ErrorIs(t, err, ErrLeaseHeld)

	require.NoError(t, release(ctx))
	exists, err := client.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestRedisLockerNotConfigured(t *testing.T) {
	var l *RedisLocker
	_, err := l.Acquire(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
