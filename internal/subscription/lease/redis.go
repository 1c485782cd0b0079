package lease

import (
	"context"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLocker holds leases as SET NX PX keys so every process sharing the
// redis instance sees the same owner lease.
type RedisLocker struct {
	client redis.UniversalClient
	script *redis.Script
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{
		client: client,
		script: redis.NewScript(releaseScript),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	if l == nil || l.client == nil {
		return nil, ErrNotConfigured
	}
	if err := validate(key, ttl); err != nil {
		return nil, err
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLeaseHeld
	}

	return func(ctx context.Context) error {
		return l.script.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}
