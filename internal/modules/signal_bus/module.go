package signal_bus

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"trade_bot/internal/modules/config"
	"trade_bot/internal/modules/signal_bus/service"
)

func Module() fx.Option {
	return fx.Module("signal_bus",
		fx.Provide(
			func(rdb *redis.Client, cfg *config.Config) *service.RedisBus {
				return service.NewRedisBus(rdb, cfg.Redis.SignalKey)
			},
		),
	)
}
