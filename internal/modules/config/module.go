package config

import (
	"go.uber.org/fx"

	"trade_bot/pkg/logger"
)

// Module отдаёт уже загруженный конфиг: main читает его до fx, чтобы поднять логгер и выбрать backend.
func Module(cfg *Config) fx.Option {
	return fx.Module("config",
		fx.Supply(cfg),
		fx.Invoke(func(cfg *Config) {
			logger.Info("[CONFIG] service=%s symbol=%s product=%d policy=%s store=%s",
				cfg.Service.Name, cfg.Delta.Symbol, cfg.Delta.ProductID, cfg.Trailing.Policy, cfg.Store.Backend)
		}),
	)
}
