package delta_client

import (
	"go.uber.org/fx"

	"trade_bot/internal/modules/config"
	"trade_bot/internal/modules/delta_client/service"
	healthsvc "trade_bot/internal/modules/health/service"
)

func Module() fx.Option {
	return fx.Module("delta_client",
		fx.Provide(
			func(cfg *config.Config, m *healthsvc.Metrics) *service.Client {
				return service.NewClient(service.Config{
					PublicURL:  cfg.Delta.PublicURL,
					PrivateURL: cfg.Delta.PrivateURL,
					APIKey:     cfg.Delta.APIKey,
					Timeout:    cfg.Delta.Timeout,
					RateLimit:  cfg.Delta.RateLimit,
					RateBurst:  cfg.Delta.RateBurst,
					MarketTTL:  cfg.Delta.MarketTTL,
					Symbol:     cfg.Delta.Symbol,
					ProductID:  cfg.Delta.ProductID,
				}, m)
			},
		),
	)
}
