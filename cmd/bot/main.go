package main

import (
	"context"
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"trade_bot/internal/modules/config"
	"trade_bot/internal/modules/delta_client"
	"trade_bot/internal/modules/health"
	"trade_bot/internal/modules/order_store"
	"trade_bot/internal/modules/price_feed"
	"trade_bot/internal/modules/redis_client"
	"trade_bot/internal/modules/signal_bus"
	"trade_bot/internal/runner"
	"trade_bot/pkg/logger"
	"trade_bot/pkg/tracing"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger.SetServiceName(cfg.Service.Name)
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	tracing.SetServiceName(cfg.Service.Name)
	_, closeTracer, err := tracing.InitTracer(tracing.Config{Host: cfg.Tracing.Host, Port: cfg.Tracing.Port})
	if err != nil {
		logger.Fatal("init tracer: %v", err)
	}
	defer closeTracer()

	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.InfoLogger}
		}),
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(cfg),
		health.Module(),
		price_feed.Module(),
		delta_client.Module(),
		redis_client.Module(),
		signal_bus.Module(),
		order_store.Module(cfg),
		runner.Module(),
	)
	app.Run()
}
