package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 30*time.Second, defaultBucketTTL(0.2, 3))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 1))
}

func TestCasts(t *testing.T) {
	assert.Equal(t, int64(1), castToInt(int64(1)))
	assert.Equal(t, int64(2), castToInt(2.9))
	assert.Zero(t, castToInt("x"))
	assert.InDelta(t, 0.75, castToFloat("0.75"), 1e-9)
	assert.InDelta(t, 2.0, castToFloat(int64(2)), 1e-9)
	assert.Zero(t, castToFloat("nope"))
}

func TestNilLimiterAllows(t *testing.T) {
	var l *SwitchLimiter
	res, err := l.AllowOwner(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.False(t, l.Enabled())
}

// Runs against a real redis when SHOPDESK_TEST_REDIS_ADDR is set.
func TestSwitchLimiterRedis(t *testing.T) {
	addr := os.Getenv("SHOPDESK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SHOPDESK_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	owner := snowflake.ID(time.Now().UnixNano())
	l := NewSwitchLimiterWithClient(client, 0.01, 2)

	for i := 0; i < 2; i++ {
		res, err := l.AllowOwner(ctx, owner)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := l.AllowOwner(ctx, owner)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)
}
