package runner

import (
	"context"

	"go.uber.org/fx"

	"trade_bot/internal/models"
	"trade_bot/internal/modules/config"
	deltasvc "trade_bot/internal/modules/delta_client/service"
	healthsvc "trade_bot/internal/modules/health/service"
	storesvc "trade_bot/internal/modules/order_store/service"
	feedsvc "trade_bot/internal/modules/price_feed/service"
	bussvc "trade_bot/internal/modules/signal_bus/service"
	"trade_bot/internal/notify"
	"trade_bot/internal/runner/orchestrator"
	"trade_bot/internal/runner/positions"
	"trade_bot/internal/runner/trailing"
	"trade_bot/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			NewStore,
			NewNotifier,
			NewEngine,
			NewOrchestrator,
		),
		fx.Invoke(run),
	)
}

func NewStore(cfg *config.Config, client *deltasvc.Client, mirror storesvc.Mirror, state *healthsvc.State, m *healthsvc.Metrics) *positions.Store {
	return positions.NewStore(positions.Config{
		Symbol:          cfg.Delta.Symbol,
		ProductID:       cfg.Delta.ProductID,
		RefreshInterval: cfg.Positions.RefreshInterval,
		OrderTTL:        cfg.Positions.OrderTTL,
	}, client, mirror, positions.WithHealth(state, m))
}

// NewNotifier телеграм, если задан токен. Без него или при ошибке бота пишем в лог.
func NewNotifier(cfg *config.Config, store *positions.Store) notify.Notifier {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		return notify.NewLog()
	}
	tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, store.Live)
	if err != nil {
		logger.Error("[RUNNER] telegram disabled: %v", err)
		return notify.NewLog()
	}
	return tg
}

func NewEngine(cfg *config.Config, store *positions.Store, cell *feedsvc.Cell, n notify.Notifier, m *healthsvc.Metrics) *trailing.Engine {
	return trailing.NewEngine(trailing.Config{
		Interval:  cfg.Trailing.Interval,
		PriceWait: cfg.Trailing.PriceWait,
	}, store, cell, trailing.NewPolicy(cfg.Trailing),
		trailing.WithNotifier(n),
		trailing.WithMetrics(m),
	)
}

func NewOrchestrator(cfg *config.Config, store *positions.Store, cell *feedsvc.Cell, bus *bussvc.RedisBus, n notify.Notifier, m *healthsvc.Metrics) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Config{
		Symbol:        cfg.Delta.Symbol,
		PollInterval:  cfg.Signals.PollInterval,
		SettleDelay:   cfg.Signals.SettleDelay,
		ConfirmSettle: cfg.Signals.ConfirmSettle,
		EntryOffset:   cfg.Signals.EntryOffset,
		StopOffset:    cfg.Signals.StopOffset,
		TargetOffset:  cfg.Signals.TargetOffset,
		OrderSize:     cfg.Signals.OrderSize,
	}, store, cell, bus,
		orchestrator.WithNotifier(n),
		orchestrator.WithMetrics(m),
	)
}

func run(
	lc fx.Lifecycle,
	cfg *config.Config,
	client *deltasvc.Client,
	engine *trailing.Engine,
	orch *orchestrator.Orchestrator,
	n notify.Notifier,
	state *healthsvc.State,
) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logAccount(startCtx, client, cfg.Delta.Symbol)

			if tg, ok := n.(*notify.Telegram); ok {
				tg.Start(ctx)
			}
			go engine.Run(ctx)
			go orch.Run(ctx)

			state.SetReady(true)
			logger.Info("[RUNNER] trailing every %s, signals every %s", cfg.Trailing.Interval, cfg.Signals.PollInterval)
			return nil
		},
		OnStop: func(context.Context) error {
			state.SetReady(false)
			cancel()
			return nil
		},
	})
}

// logAccount баланс и рынок один раз на старте. Ошибки не фатальны.
func logAccount(ctx context.Context, client *deltasvc.Client, symbol string) {
	balances, err := client.FetchBalance(ctx)
	if err != nil {
		logger.Warn("[RUNNER] fetch balance: %v", err)
	}
	for _, b := range balances {
		if b.Total == 0 && b.Available == 0 {
			continue
		}
		logger.Info("[RUNNER] balance %s available=%.4f total=%.4f", b.Asset, b.Available, b.Total)
	}

	var m models.Market
	if m, err = client.Market(ctx, symbol); err != nil {
		logger.Warn("[RUNNER] market %s: %v", symbol, err)
		return
	}
	logger.Info("[RUNNER] market %s product=%d tick=%v contract=%v", m.Symbol, m.ProductID, m.TickSize, m.ContractValue)
}
