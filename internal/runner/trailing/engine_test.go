package trailing

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_bot/internal/models"
	"trade_bot/internal/modules/config"
	"trade_bot/internal/runner/positions"
	"trade_bot/internal/runner/positions/postest"
	"trade_bot/pkg/logger"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type price struct{ bits atomic.Uint64 }

func (p *price) set(v float64) { p.bits.Store(math.Float64bits(v)) }

func (p *price) CurrentPrice() (float64, bool) {
	b := p.bits.Load()
	if b == 0 {
		return 0, false
	}
	return math.Float64frombits(b), true
}

type fixture struct {
	gw     *postest.Gateway
	store  *positions.Store
	clk    *clock
	price  *price
	engine *Engine
}

func newFixture(t *testing.T, policy Policy, ps ...models.Position) *fixture {
	t.Helper()
	logger.InitNop()
	f := &fixture{
		gw:    &postest.Gateway{Positions: ps},
		clk:   &clock{t: time.Unix(1_700_000_000, 0)},
		price: &price{},
	}
	f.store = positions.NewStore(positions.Config{
		Symbol:          "BTCUSD",
		ProductID:       27,
		RefreshInterval: 5 * time.Second,
	}, f.gw, nil, positions.WithClock(f.clk.now))
	if policy == nil {
		policy = NewPolicy(config.DefaultTrailing())
	}
	f.engine = NewEngine(Config{Interval: 10 * time.Millisecond}, f.store, f.price, policy, WithClock(f.clk.now))
	return f
}

func long(id string, size, entry float64) models.Position {
	return models.Position{ID: id, Symbol: "BTCUSD", ProductID: 27, Size: size, EntryPrice: entry}
}

func TestEvaluateRuleSelection(t *testing.T) {
	f := newFixture(t, nil)
	ev, err := f.engine.Evaluate(long("a", 1, 50000), 51100)
	require.NoError(t, err)
	assert.Equal(t, models.RuleLock50, ev.Rule)
	assert.Equal(t, 50550.0, ev.Stop)
	assert.InDelta(t, 1100.0/50000, ev.Ratio, 1e-12)

	f = newFixture(t, nil)
	ev, err = f.engine.Evaluate(long("a", 1, 50000), 50200)
	require.NoError(t, err)
	assert.Equal(t, models.RuleFixedStop, ev.Rule)
	assert.Equal(t, 49500.0, ev.Stop)
	assert.Equal(t, 200.0, ev.State.MaxExcursion)
}

func TestEvaluateShortSigns(t *testing.T) {
	f := newFixture(t, nil)
	short := long("s", -1, 50000)

	ev, err := f.engine.Evaluate(short, 49800)
	require.NoError(t, err)
	assert.Equal(t, models.RuleFixedStop, ev.Rule)
	assert.Equal(t, 50500.0, ev.Stop)

	ev, err = f.engine.Evaluate(short, 48800)
	require.NoError(t, err)
	assert.Equal(t, models.RuleLock50, ev.Rule)
	assert.Equal(t, 49400.0, ev.Stop)
}

func TestLockAppliesOnlyWhileInProfit(t *testing.T) {
	f := newFixture(t, nil)
	pos := long("a", 1, 50000)

	_, err := f.engine.Evaluate(pos, 51200)
	require.NoError(t, err)
	ev, err := f.engine.Evaluate(pos, 49900)
	require.NoError(t, err)
	assert.Equal(t, models.RuleFixedStop, ev.Rule)
	assert.Equal(t, 50600.0, ev.Stop, "fixed candidate never relaxes the locked stop")
}

func TestStopMonotonicAndExcursionNonDecreasing(t *testing.T) {
	for _, size := range []float64{1, -1} {
		f := newFixture(t, nil)
		pos := long("p", size, 50000)

		var prevStop, prevMax float64
		for i := 0; i < 400; i++ {
			live := 50000 + 2500*math.Sin(float64(i)/17) + 300*math.Cos(float64(i)/3)
			ev, err := f.engine.Evaluate(pos, live)
			require.NoError(t, err)
			if i > 0 {
				if size > 0 {
					require.GreaterOrEqual(t, ev.Stop, prevStop, "long stop decreased at %d", i)
				} else {
					require.LessOrEqual(t, ev.Stop, prevStop, "short stop increased at %d", i)
				}
				require.GreaterOrEqual(t, ev.State.MaxExcursion, prevMax)
			}
			prevStop, prevMax = ev.Stop, ev.State.MaxExcursion
		}
	}
}

func TestForcedCloseIssuedOnce(t *testing.T) {
	f := newFixture(t, nil, long("a", 1, 50000))
	ctx := context.Background()

	f.price.set(50200)
	f.engine.Tick(ctx)
	assert.Empty(t, f.gw.Created())

	f.price.set(49400)
	f.engine.Tick(ctx)
	f.engine.Tick(ctx)

	created := f.gw.Created()
	require.Len(t, created, 1)
	assert.Equal(t, models.OrderMarket, created[0].Type)
	assert.Equal(t, models.SideSell, created[0].Side)
	assert.Equal(t, 1.0, created[0].Amount)
	assert.Equal(t, models.IOC, created[0].TimeInForce)

	// биржа всё ещё показывает позицию в свежем снимке, закрытие повторяется
	f.clk.advance(5 * time.Second)
	f.engine.Tick(ctx)
	assert.Len(t, f.gw.Created(), 2)
}

func TestForcedCloseFlattensAndPurges(t *testing.T) {
	f := newFixture(t, nil, long("a", -2, 50000))
	f.gw.FlattenOnClose = true
	ctx := context.Background()

	f.price.set(50600)
	f.engine.Tick(ctx)
	require.Len(t, f.gw.Created(), 1)
	assert.Equal(t, models.SideBuy, f.gw.Created()[0].Side)
	assert.Equal(t, 2.0, f.gw.Created()[0].Amount)

	f.engine.Tick(ctx)
	assert.Len(t, f.gw.Created(), 1)
	assert.Zero(t, f.store.TrailCount())
}

func TestReopenedPositionStartsFresh(t *testing.T) {
	f := newFixture(t, nil, long("p1", 1, 50000))
	ctx := context.Background()

	f.price.set(52000)
	f.engine.Tick(ctx)
	st, ok := f.store.Trail("p1")
	require.True(t, ok)
	require.Equal(t, models.RuleLock50, st.Rule)
	require.Equal(t, 51000.0, st.StopPrice)

	// тот же id на бирже уже шорт от 52000
	f.gw.SetPositions(long("p1", -1, 52000))
	f.clk.advance(5 * time.Second)
	f.price.set(51900)
	f.engine.Tick(ctx)

	st, ok = f.store.Trail("p1")
	require.True(t, ok)
	assert.Equal(t, models.PosShort, st.Side)
	assert.Equal(t, 100.0, st.MaxExcursion)
	assert.Equal(t, models.RuleFixedStop, st.Rule)
	assert.Equal(t, 52500.0, st.StopPrice)
	assert.True(t, st.ClosingAt.IsZero())
	assert.Empty(t, f.gw.Created())
}

func TestBadPositionDoesNotAbortTick(t *testing.T) {
	f := newFixture(t, nil,
		long("bad", 1, 0),
		long("good", 1, 50000),
	)
	f.price.set(49400)
	f.engine.Tick(context.Background())

	require.Len(t, f.gw.Created(), 1)
	_, ok := f.store.Trail("bad")
	assert.False(t, ok)
	_, ok = f.store.Trail("good")
	assert.True(t, ok)
}

func TestNoPriceNoAction(t *testing.T) {
	f := newFixture(t, nil, long("a", 1, 50000))
	f.engine.Tick(context.Background())
	assert.Zero(t, f.store.TrailCount())
}

func TestPercentPolicyLadder(t *testing.T) {
	p := NewPercentPolicy(config.DefaultTrailing().Percent)
	pos := long("a", 1, 50000)

	c := p.Candidate(pos, 50100, models.TrailState{})
	assert.Equal(t, models.RuleFixedStop, c.Rule)
	assert.InDelta(t, 49750, c.Stop, 1e-6)

	c = p.Candidate(pos, 50300, models.TrailState{})
	assert.Equal(t, models.RuleDynamic, c.Rule)
	assert.InDelta(t, 50050, c.Stop, 1e-6)

	c = p.Candidate(pos, 50800, models.TrailState{})
	assert.Equal(t, models.RuleDynamic, c.Rule)
	assert.InDelta(t, 50600, c.Stop, 1e-6)

	c = p.Candidate(pos, 51100, models.TrailState{})
	assert.Equal(t, models.RulePartialBooking, c.Rule)
	assert.InDelta(t, 50990, c.Stop, 1e-6)

	short := long("s", -1, 50000)
	c = p.Candidate(short, 49700, models.TrailState{})
	assert.Equal(t, models.RuleDynamic, c.Rule)
	assert.InDelta(t, 49950, c.Stop, 1e-6)
}

func TestPartialBookingPushesBracketOnChange(t *testing.T) {
	f := newFixture(t, NewPercentPolicy(config.DefaultTrailing().Percent), long("a", 1, 50000))
	ctx := context.Background()

	f.price.set(51100)
	f.engine.Tick(ctx)
	f.engine.Tick(ctx)

	var brackets []postest.Call
	for _, c := range f.gw.Calls() {
		if c.Op == "modify_bracket" {
			brackets = append(brackets, c)
		}
	}
	require.Len(t, brackets, 1)
	assert.Equal(t, "a", brackets[0].ID)
	assert.InDelta(t, 50990, brackets[0].Bracket.StopLossPrice, 1e-6)
	assert.Zero(t, brackets[0].Bracket.TakeProfitPrice)
	assert.Empty(t, f.gw.Created(), "partial booking never force-closes")

	f.price.set(51500)
	f.engine.Tick(ctx)
	assert.Equal(t, 2, countOps(f.gw, "modify_bracket"))
}

func countOps(gw *postest.Gateway, op string) int {
	n := 0
	for _, o := range gw.Ops() {
		if o == op {
			n++
		}
	}
	return n
}

func TestRunTicksWithoutInitialPrice(t *testing.T) {
	f := newFixture(t, nil, long("a", 1, 50000))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.engine.Run(ctx)
		close(done)
	}()

	f.price.set(49000)
	require.Eventually(t, func() bool { return len(f.gw.Created()) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
