package lease

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/shopdesk/internal/clock"
	"github.com/smallbiznis/shopdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Clock     clock.Clock
	Log       *zap.Logger
}

// Provide picks the redis lease when SUBSCRIPTION_LOCK_REDIS_ADDR is set and
// the in-process lease otherwise.
func Provide(p Params) Locker {
	log := p.Log.Named("subscription.lease")
	if !p.Config.Lock.Distributed() {
		log.Info("using in-process switch lease")
		return NewLocalLocker(p.Clock)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     p.Config.Lock.RedisAddr,
		Password: p.Config.Lock.RedisPassword,
		DB:       p.Config.Lock.RedisDB,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Error("redis lease unreachable", zap.String("addr", p.Config.Lock.RedisAddr), zap.Error(err))
				return err
			}
			log.Info("using redis switch lease", zap.String("addr", p.Config.Lock.RedisAddr))
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return NewRedisLocker(client)
}
