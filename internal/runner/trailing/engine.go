package trailing

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"trade_bot/internal/helper"
	"trade_bot/internal/models"
	healthsvc "trade_bot/internal/modules/health/service"
	"trade_bot/internal/notify"
	"trade_bot/pkg/logger"
	"trade_bot/pkg/tracing"
)

// Prices последняя цена из стрима.
type Prices interface {
	CurrentPrice() (float64, bool)
}

// Store то, что движку нужно от positions.Store.
type Store interface {
	Refresh(ctx context.Context) []models.Position
	Snapshot() ([]models.Position, time.Time)
	Invalidate()
	UpdateTrail(id string, fn func(st *models.TrailState)) models.TrailState
	ForceClose(ctx context.Context, pos models.Position) (models.Order, error)
	AttachBracket(ctx context.Context, id string, params models.BracketParams) (models.Order, error)
}

type Config struct {
	Interval      time.Duration
	PriceWait     time.Duration
	PriceWaitStep time.Duration
}

type Evaluation struct {
	Stop   float64
	Ratio  float64
	Rule   models.TrailRule
	Profit float64 // пункты
	State  models.TrailState
}

type Engine struct {
	cfg      Config
	store    Store
	prices   Prices
	policy   Policy
	notifier notify.Notifier
	metrics  *healthsvc.Metrics
	now      func() time.Time

	hadPositions bool // только из Tick, одна горутина
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithMetrics(m *healthsvc.Metrics) Option { return func(e *Engine) { e.metrics = m } }

func WithNotifier(n notify.Notifier) Option { return func(e *Engine) { e.notifier = n } }

func NewEngine(cfg Config, store Store, prices Prices, policy Policy, opts ...Option) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.PriceWaitStep <= 0 {
		cfg.PriceWaitStep = 2 * time.Second
	}
	e := &Engine{
		cfg:          cfg,
		store:        store,
		prices:       prices,
		policy:       policy,
		notifier:     notify.NewLog(),
		now:          time.Now,
		hadPositions: true,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate excursion, кандидат, подтягивание и сохранение стопа.
func (e *Engine) Evaluate(pos models.Position, live float64) (Evaluation, error) {
	if err := pos.Validate(); err != nil {
		return Evaluation{}, errors.Wrapf(err, "position %s", pos.ID)
	}
	profit := pos.ProfitPoints(live)

	var (
		c        Candidate
		reopened bool
	)
	st := e.store.UpdateTrail(pos.ID, func(st *models.TrailState) {
		reopened = st.Rebind(pos.Side(), pos.EntryPrice)
		st.Observe(profit)
		c = e.policy.Candidate(pos, live, *st)
		st.Rule = c.Rule
		st.Tighten(c.Stop)
	})
	if reopened {
		logger.Info("[TRAIL] %s reopened as %s @ %.1f, trail reset", pos.ID, pos.Side(), pos.EntryPrice)
	}

	return Evaluation{
		Stop:   st.StopPrice,
		Ratio:  c.Ratio,
		Rule:   c.Rule,
		Profit: profit,
		State:  st,
	}, nil
}

// Tick один проход по всем открытым позициям.
func (e *Engine) Tick(ctx context.Context) {
	ctx, finish := tracing.StartSpan(ctx, "trailing.tick")
	defer finish(nil)

	open := e.store.Refresh(ctx)
	live, ok := e.prices.CurrentPrice()
	if !ok {
		return
	}

	if len(open) == 0 {
		if e.hadPositions {
			logger.Info("[TRAIL] no open positions, profit trailing paused")
			e.hadPositions = false
		}
		return
	}
	if !e.hadPositions {
		logger.Info("[TRAIL] open positions detected, profit trailing resumed")
		e.hadPositions = true
	}

	for _, pos := range open {
		e.tickOne(ctx, pos, live)
	}
}

func (e *Engine) tickOne(ctx context.Context, pos models.Position, live float64) {
	ev, err := e.Evaluate(pos, live)
	if err != nil {
		logger.Warn("[TRAIL] skip %v", err)
		return
	}
	e.display(pos, live, ev)

	switch {
	case ev.Rule.ForceCloses():
		if ev.State.Crossed(live) {
			e.forceClose(ctx, pos, live, ev)
		}
	case ev.Rule == models.RulePartialBooking:
		if ev.State.BracketStop != ev.Stop {
			e.pushBracket(ctx, pos, ev)
		}
	}
}

// display одна запись на изменение кортежа (entry, live, pnl%, usd, rule, sl).
func (e *Engine) display(pos models.Position, live float64, ev Evaluation) {
	line := fmt.Sprintf("Entry: %.1f | Live: %.1f | PnL: %.2f%% | USD: %.2f | Rule: %s | SL: %.1f",
		pos.EntryPrice, live,
		helper.Round2(pos.ProfitRatio(live)*100),
		helper.Round2(pos.RawProfit(live)/1000),
		ev.Rule, ev.Stop,
	)
	if line == ev.State.Display {
		return
	}
	logger.Info("[TRAIL] Order: %s | %s", pos.ID, line)
	e.store.UpdateTrail(pos.ID, func(st *models.TrailState) { st.Display = line })
}

// forceClose одно закрытие на снимок позиций: повтор только после свежего Refresh.
func (e *Engine) forceClose(ctx context.Context, pos models.Position, live float64, ev Evaluation) {
	_, refreshedAt := e.store.Snapshot()
	if !ev.State.ClosingAt.IsZero() && !refreshedAt.After(ev.State.ClosingAt) {
		return
	}

	now := e.now()
	e.store.UpdateTrail(pos.ID, func(st *models.TrailState) { st.ClosingAt = now })

	o, err := e.store.ForceClose(ctx, pos)
	if err != nil {
		logger.Error("[TRAIL] force close %s: %v", pos.ID, err)
		e.store.UpdateTrail(pos.ID, func(st *models.TrailState) { st.ClosingAt = time.Time{} })
		return
	}
	e.store.Invalidate()
	e.metrics.ForcedClose("trailing", string(pos.Side()))

	logger.Info("[TRAIL] stop %.1f crossed by %.1f, %s %s closed, order %s",
		ev.Stop, live, pos.Side(), pos.ID, o.ID)
	e.notifier.Sendf(ctx, "🛑 [%s] Трейлинг-стоп %.1f пробит (%s), позиция %s закрыта по %.1f",
		pos.Symbol, ev.Stop, ev.Rule, pos.Side(), live)
}

func (e *Engine) pushBracket(ctx context.Context, pos models.Position, ev Evaluation) {
	if _, err := e.store.AttachBracket(ctx, pos.ID, models.NewStopBracket(ev.Stop)); err != nil {
		logger.Error("[TRAIL] partial booking bracket %s: %v", pos.ID, err)
		return
	}
	e.store.UpdateTrail(pos.ID, func(st *models.TrailState) { st.BracketStop = ev.Stop })
	e.metrics.BracketUpdate()
	logger.Info("[TRAIL] bracket stop for %s moved to %.1f (partial booking)", pos.ID, ev.Stop)
}

// Run ждёт первую цену до PriceWait, потом тикает до отмены ctx.
func (e *Engine) Run(ctx context.Context) {
	e.waitForPrice(ctx)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

func (e *Engine) waitForPrice(ctx context.Context) {
	var waited time.Duration
	for {
		if _, ok := e.prices.CurrentPrice(); ok {
			return
		}
		if waited >= e.cfg.PriceWait {
			logger.Warn("[TRAIL] live price not available after %s, keep ticking without it", waited)
			return
		}
		logger.Info("[TRAIL] waiting for live price update...")
		if err := helper.SleepCtx(ctx, e.cfg.PriceWaitStep); err != nil {
			return
		}
		waited += e.cfg.PriceWaitStep
	}
}
