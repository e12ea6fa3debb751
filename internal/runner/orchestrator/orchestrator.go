package orchestrator

import (
	"context"
	"sync"
	"time"

	"trade_bot/internal/helper"
	"trade_bot/internal/models"
	healthsvc "trade_bot/internal/modules/health/service"
	"trade_bot/internal/notify"
	"trade_bot/pkg/logger"
	"trade_bot/pkg/tracing"
)

type Outcome string

const (
	OutcomePlaced         Outcome = "placed"
	OutcomeSkippedNoPrice Outcome = "skipped_no_price"
	OutcomeTakeProfit     Outcome = "take_profit"
	OutcomeNoSide         Outcome = "no_side"
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomeIncomplete     Outcome = "incomplete"
	OutcomeFailed         Outcome = "failed"
)

type Prices interface {
	CurrentPrice() (float64, bool)
}

type Bus interface {
	Fetch(ctx context.Context) (*models.Signal, error)
}

// Store то, что оркестратору нужно от positions.Store.
type Store interface {
	Live(ctx context.Context) ([]models.Position, error)
	Invalidate()
	ForceClose(ctx context.Context, pos models.Position) (models.Order, error)
	OpenOrders(ctx context.Context) ([]models.Order, error)
	CancelOrder(ctx context.Context, o models.Order) error
	HasOpenOrder(ctx context.Context, symbol string, side models.Side) bool
	PlaceLimit(ctx context.Context, side models.Side, amount, price float64) (models.Order, error)
	AttachBracket(ctx context.Context, id string, params models.BracketParams) (models.Order, error)
}

type Config struct {
	Symbol        string
	PollInterval  time.Duration
	SettleDelay   time.Duration
	ConfirmSettle bool
	ConfirmStep   time.Duration
	EntryOffset   float64
	StopOffset    float64
	TargetOffset  float64
	OrderSize     float64
}

type Orchestrator struct {
	cfg      Config
	store    Store
	prices   Prices
	bus      Bus
	notifier notify.Notifier
	metrics  *healthsvc.Metrics
	sleep    func(ctx context.Context, d time.Duration) error

	mu   sync.Mutex // один сигнал за раз
	last *models.Signal
}

type Option func(*Orchestrator)

func WithNotifier(n notify.Notifier) Option { return func(o *Orchestrator) { o.notifier = n } }

func WithMetrics(m *healthsvc.Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

// WithSleep подмена паузы, для тестов.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

func New(cfg Config, store Store, prices Prices, bus Bus, opts ...Option) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.ConfirmStep <= 0 {
		cfg.ConfirmStep = 250 * time.Millisecond
	}
	if cfg.OrderSize <= 0 {
		cfg.OrderSize = 1
	}
	o := &Orchestrator{
		cfg:      cfg,
		store:    store,
		prices:   prices,
		bus:      bus,
		notifier: notify.NewLog(),
		sleep:    helper.SleepCtx,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run опрос шины каждые PollInterval до отмены ctx.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	o.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Poll(ctx)
		}
	}
}

// Poll один опрос. processed=false, если сигнала нет или текст не изменился.
func (o *Orchestrator) Poll(ctx context.Context) (outcome Outcome, processed bool) {
	sig, err := o.bus.Fetch(ctx)
	if err != nil {
		logger.Warn("[SIGNAL] fetch: %v", err)
		return "", false
	}
	if sig == nil {
		return "", false
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if sig.SameText(o.last) {
		return "", false
	}
	o.last = sig

	logger.Info("[SIGNAL] new signal: %q", sig.Text)
	_, outcome = o.onSignalLocked(ctx, *sig)
	o.metrics.Signal(string(outcome))
	return outcome, true
}

// OnSignal обрабатывает сигнал целиком. Шаги строго последовательны,
// ошибки шлюза логируются и обработка идёт дальше с тем, что есть.
func (o *Orchestrator) OnSignal(ctx context.Context, sig models.Signal) (*models.Order, Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.onSignalLocked(ctx, sig)
}

func (o *Orchestrator) onSignalLocked(ctx context.Context, sig models.Signal) (*models.Order, Outcome) {
	ctx, finish := tracing.StartSpan(ctx, "orchestrator.on_signal")
	defer finish(nil)

	ref, ok := o.referencePrice(sig)
	if !ok {
		logger.Warn("[SIGNAL] no price in signal and no live price, skip")
		return nil, OutcomeSkippedNoPrice
	}

	intent := sig.Intent()
	if intent == models.IntentTakeProfit {
		o.takeProfit(ctx, ref)
		return nil, OutcomeTakeProfit
	}

	side := intent.Side()
	if side == models.SideNone {
		logger.Info("[SIGNAL] no actionable side in %q", sig.Text)
		return nil, OutcomeNoSide
	}

	o.closeOpposite(ctx, side)
	o.cleanupOrders(ctx, side)

	if o.store.HasOpenOrder(ctx, o.cfg.Symbol, side) {
		logger.Info("[SIGNAL] pending %s order exists, skip entry", side)
		return nil, OutcomeDuplicate
	}

	if !sig.HasZones() {
		logger.Info("[SIGNAL] supply/demand zones missing, skip entry")
		return nil, OutcomeIncomplete
	}

	return o.enter(ctx, side, ref)
}

// referencePrice цена сигнала, иначе последняя цена стрима.
func (o *Orchestrator) referencePrice(sig models.Signal) (float64, bool) {
	if sig.Price != nil && *sig.Price > 0 {
		return *sig.Price, true
	}
	return o.prices.CurrentPrice()
}

// takeProfit закрывает только убыточные позиции. Прибыль считаем по живой цене, если она есть.
func (o *Orchestrator) takeProfit(ctx context.Context, ref float64) {
	price := ref
	if live, ok := o.prices.CurrentPrice(); ok {
		price = live
	}

	open, err := o.store.Live(ctx)
	if err != nil {
		logger.Error("[SIGNAL] take profit: fetch positions: %v", err)
		return
	}
	closed := 0
	for _, p := range open {
		if p.ProfitPoints(price) >= 0 {
			continue
		}
		if _, err := o.store.ForceClose(ctx, p); err != nil {
			logger.Error("[SIGNAL] take profit close %s: %v", p.ID, err)
			continue
		}
		closed++
		o.metrics.ForcedClose("take_profit", string(p.Side()))
		logger.Info("[SIGNAL] take profit: closed losing %s %s at %.1f", p.Side(), p.ID, price)
	}
	if closed > 0 {
		o.store.Invalidate()
		o.notifier.Sendf(ctx, "✅ [%s] Take profit: закрыто убыточных позиций %d", o.cfg.Symbol, closed)
	}
}

// closeOpposite принудительно закрывает позиции против новой стороны.
func (o *Orchestrator) closeOpposite(ctx context.Context, side models.Side) {
	open, err := o.store.Live(ctx)
	if err != nil {
		logger.Error("[SIGNAL] fetch positions: %v", err)
		return
	}
	closed := false
	for _, p := range open {
		if p.Side().EntrySide() != side.Opposite() {
			continue
		}
		if _, err := o.store.ForceClose(ctx, p); err != nil {
			logger.Error("[SIGNAL] close opposite %s: %v", p.ID, err)
			continue
		}
		closed = true
		o.metrics.ForcedClose("signal", string(p.Side()))
		logger.Info("[SIGNAL] closed opposite %s position %s size %.4f", p.Side(), p.ID, p.AbsSize())
	}
	if !closed {
		return
	}
	o.store.Invalidate()
	o.settle(ctx, func(ctx context.Context) bool {
		ps, err := o.store.Live(ctx)
		if err != nil {
			return false
		}
		for _, p := range ps {
			if p.Side().EntrySide() == side.Opposite() {
				return false
			}
		}
		return true
	})
}

// cleanupOrders сначала конфликтующие, потом свои же, чтобы не задвоить вход.
func (o *Orchestrator) cleanupOrders(ctx context.Context, side models.Side) {
	orders, err := o.store.OpenOrders(ctx)
	if err != nil {
		logger.Error("[SIGNAL] fetch open orders: %v", err)
	}

	cancel := func(kind string, match func(models.Order) bool) {
		for _, ord := range orders {
			if !ord.IsOpen() || !match(ord) {
				continue
			}
			if err := o.store.CancelOrder(ctx, ord); err != nil {
				logger.Error("[SIGNAL] cancel %s order %s: %v", kind, ord.ID, err)
				continue
			}
			logger.Info("[SIGNAL] canceled %s order %s (%s)", kind, ord.ID, ord.Side)
		}
	}
	cancel("conflicting", func(ord models.Order) bool { return !ord.SameSide(side) })
	cancel("same-side", func(ord models.Order) bool { return ord.SameSide(side) })

	o.settle(ctx, func(ctx context.Context) bool {
		left, err := o.store.OpenOrders(ctx)
		return err == nil && len(left) == 0
	})
}

func (o *Orchestrator) enter(ctx context.Context, side models.Side, ref float64) (*models.Order, Outcome) {
	entry, stop, target := o.levels(side, ref)

	ord, err := o.store.PlaceLimit(ctx, side, o.cfg.OrderSize, entry)
	if err != nil {
		logger.Error("[SIGNAL] place entry: %v", err)
		return nil, OutcomeFailed
	}
	withBracket, err := o.store.AttachBracket(ctx, ord.ID, models.NewBracket(stop, target))
	if err != nil {
		logger.Error("[SIGNAL] attach bracket to %s: %v", ord.ID, err)
		return &ord, OutcomeFailed
	}

	logger.Info("[SIGNAL] %s limit %s @ %.1f SL=%.1f TP=%.1f", side, withBracket.ID, entry, stop, target)
	o.notifier.Sendf(ctx, "📥 [%s] %s лимит %.4f @ %.1f | SL %.1f | TP %.1f",
		o.cfg.Symbol, side, o.cfg.OrderSize, entry, stop, target)
	return &withBracket, OutcomePlaced
}

// levels вход, стоп и тейк фиксированными отступами от опорной цены.
func (o *Orchestrator) levels(side models.Side, ref float64) (entry, stop, target float64) {
	if side == models.SideSell {
		return ref + o.cfg.EntryOffset, ref + o.cfg.StopOffset, ref - o.cfg.TargetOffset
	}
	return ref - o.cfg.EntryOffset, ref - o.cfg.StopOffset, ref + o.cfg.TargetOffset
}

// settle фиксированная пауза. С ConfirmSettle опрашиваем состояние до done или до SettleDelay.
func (o *Orchestrator) settle(ctx context.Context, done func(ctx context.Context) bool) {
	if !o.cfg.ConfirmSettle {
		_ = o.sleep(ctx, o.cfg.SettleDelay)
		return
	}
	for waited := time.Duration(0); waited < o.cfg.SettleDelay; waited += o.cfg.ConfirmStep {
		if done(ctx) {
			return
		}
		if err := o.sleep(ctx, o.cfg.ConfirmStep); err != nil {
			return
		}
	}
}
