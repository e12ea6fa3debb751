package redis_client

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"trade_bot/internal/modules/config"
	"trade_bot/pkg/logger"
)

// Module общий redis-клиент: шина сигналов и зеркало ордеров.
// Недоступный redis на старте не фатален, клиент переподключается сам.
func Module() fx.Option {
	return fx.Module("redis_client",
		fx.Provide(
			func(lc fx.Lifecycle, cfg *config.Config) *redis.Client {
				rdb := redis.NewClient(&redis.Options{
					Addr:     cfg.RedisAddr(),
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						if err := rdb.Ping(ctx).Err(); err != nil {
							logger.Error("[REDIS] ping %s: %v", cfg.RedisAddr(), err)
						}
						return nil
					},
					OnStop: func(context.Context) error {
						return rdb.Close()
					},
				})
				return rdb
			},
		),
	)
}
