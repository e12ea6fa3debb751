package price_feed

import (
	"context"
	"time"

	"go.uber.org/fx"

	"trade_bot/internal/modules/config"
	healthsvc "trade_bot/internal/modules/health/service"
	"trade_bot/internal/modules/price_feed/service"
)

// Module поднимает ячейку цены и стрим aggTrade со сторожем.
func Module() fx.Option {
	return fx.Module("price_feed",
		fx.Provide(
			service.NewCell,
			func(cfg *config.Config, cell *service.Cell, state *healthsvc.State, m *healthsvc.Metrics) *service.Feed {
				return service.NewFeed(service.Config{
					URL:        cfg.Feed.URL,
					Stream:     cfg.Feed.Stream,
					StaleAfter: cfg.Feed.StaleAfter,
					Interval:   cfg.Feed.WatchdogInterval,
				}, cell, service.WithHealth(state, m))
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, feed *service.Feed) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(startCtx context.Context) error {
					if cfg.Feed.SeedFromREST {
						service.Seed(startCtx, feed.Cell(), service.NewBinanceSource(), cfg.Feed.SeedSymbol, time.Now)
					}
					feed.Start(ctx)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
