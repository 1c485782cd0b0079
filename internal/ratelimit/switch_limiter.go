package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/shopdesk/internal/config"
	"go.uber.org/fx"
)

const keySwitchOwner = "shopdesk:subscription:switch:rate:%s"

// SwitchLimiter throttles switch requests per owner. A nil limiter allows
// everything.
type SwitchLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewSwitchLimiter(lc fx.Lifecycle, cfg config.Config) (*SwitchLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(cfg.Lock.RedisAddr)
	if addr == "" {
		return nil, errors.New("switch rate limit needs SUBSCRIPTION_LOCK_REDIS_ADDR")
	}
	if limitCfg.SwitchRate <= 0 || limitCfg.SwitchBurst <= 0 {
		return nil, errors.New("switch rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Lock.RedisPassword,
		DB:       cfg.Lock.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return client.Close() },
	})

	return NewSwitchLimiterWithClient(client, limitCfg.SwitchRate, limitCfg.SwitchBurst), nil
}

func NewSwitchLimiterWithClient(client *redis.Client, rate float64, burst int) *SwitchLimiter {
	return &SwitchLimiter{
		bucket: NewTokenBucket(client),
		rate:   rate,
		burst:  burst,
	}
}

func (l *SwitchLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *SwitchLimiter) AllowOwner(ctx context.Context, ownerID snowflake.ID) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keySwitchOwner, ownerID.String()), l.rate, l.burst)
}
