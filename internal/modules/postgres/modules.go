package postgres

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/fx"

	"trade_bot/internal/modules/config"
	"trade_bot/pkg/db"
)

// Module пул только для backend=postgres зеркала ордеров.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (*db.PgTxManager, error) {
				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN:         cfg.DB,
					MaxConns:    4,
					ConnTimeout: 5 * time.Second,
				})
				if err != nil {
					return nil, errors.Wrap(err, "create pool")
				}

				if err = poolMaster.Ping(ctx); err != nil {
					poolMaster.Close()
					return nil, errors.Wrap(err, "ping postgres")
				}

				tm := db.NewPgTxManager(poolMaster)
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						tm.Close()
						return nil
					},
				})
				return tm, nil
			},
			func(tm *db.PgTxManager) db.TxManager { return tm },
		),
	)
}
