package order_store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"trade_bot/internal/modules/config"
	"trade_bot/internal/modules/order_store/service"
	"trade_bot/internal/modules/postgres"
	"trade_bot/pkg/db"
	"trade_bot/pkg/logger"
)

// mirrorTTL для redis: ордера старше суток никто не восстанавливает.
const mirrorTTL = 24 * time.Hour

// Module выбирает backend зеркала по store.backend. Пул postgres поднимается только для него.
func Module(cfg *config.Config) fx.Option {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		return fx.Module("order_store",
			postgres.Module(),
			fx.Provide(func(ctx context.Context, tm db.TxManager) (service.Mirror, error) {
				m := service.NewPgMirror(tm)
				if err := m.EnsureSchema(ctx); err != nil {
					return nil, err
				}
				return m, nil
			}),
		)
	case config.StoreBadger:
		return fx.Module("order_store",
			fx.Provide(func(lc fx.Lifecycle) (service.Mirror, error) {
				m, err := service.OpenBadger(cfg.Store.BadgerDir)
				if err != nil {
					return nil, errors.Wrap(err, "open order mirror")
				}
				lc.Append(fx.Hook{OnStop: func(context.Context) error { return m.Close() }})
				return m, nil
			}),
		)
	case config.StoreMemory:
		return fx.Module("order_store",
			fx.Provide(func() service.Mirror { return service.NewMemoryMirror() }),
		)
	default:
		return fx.Module("order_store",
			fx.Provide(func(rdb *redis.Client) service.Mirror {
				logger.Debug("[STORE] order mirror: redis")
				return service.NewRedisMirror(rdb, mirrorTTL)
			}),
		)
	}
}
