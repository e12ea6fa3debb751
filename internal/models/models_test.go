package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalIntent(t *testing.T) {
	cases := map[string]Intent{
		"Take Profit now":   IntentTakeProfit,
		"TP hit":            IntentTakeProfit,
		"Go SHORT at zone":  IntentSell,
		"strong buy":        IntentBuy,
		"short and buy":     IntentSell,
		"wait for breakout": IntentNone,
		"":                  IntentNone,
	}
	for text, want := range cases {
		got := Signal{Text: text}.Intent()
		assert.Equal(t, want, got, text)
	}
	assert.Equal(t, SideSell, IntentSell.Side())
	assert.Equal(t, SideNone, IntentTakeProfit.Side())
}

func TestSignalSameTextIgnoresPrice(t *testing.T) {
	p1, p2 := 100.0, 200.0
	a := Signal{Text: "buy", Price: &p1}
	b := Signal{Text: "buy", Price: &p2}
	assert.True(t, a.SameText(&b))
	assert.False(t, a.SameText(nil))
	assert.False(t, a.SameText(&Signal{Text: "Buy"}))
}

func TestTrailTightenLong(t *testing.T) {
	st := &TrailState{Side: PosLong}
	assert.Equal(t, 49500.0, st.Tighten(49500))
	assert.Equal(t, 50550.0, st.Tighten(50550))
	assert.Equal(t, 50550.0, st.Tighten(49500), "long stop must not drop")
	assert.True(t, st.Crossed(50500))
	assert.False(t, st.Crossed(50600))
}

func TestTrailTightenShort(t *testing.T) {
	st := &TrailState{Side: PosShort}
	st.Tighten(50500)
	assert.Equal(t, 49450.0, st.Tighten(49450))
	assert.Equal(t, 49450.0, st.Tighten(50500), "short stop must not rise")
	assert.True(t, st.Crossed(49500))
}

func TestTrailRebind(t *testing.T) {
	st := &TrailState{PositionID: "p1"}
	assert.False(t, st.Rebind(PosLong, 50000), "first bind is not a reset")
	st.Observe(2000)
	st.Tighten(51000)
	st.ClosingAt = time.Unix(1, 0)
	st.BracketStop = 51000

	assert.False(t, st.Rebind(PosLong, 50000))
	assert.Equal(t, 2000.0, st.MaxExcursion)

	assert.True(t, st.Rebind(PosShort, 52000))
	assert.Equal(t, TrailState{PositionID: "p1", Side: PosShort, EntryPrice: 52000}, *st)

	st.Observe(10)
	assert.True(t, st.Rebind(PosShort, 52100), "new entry on the same side resets too")
	assert.Zero(t, st.MaxExcursion)
}

func TestPositionProfit(t *testing.T) {
	long := Position{Size: 2, EntryPrice: 50000}
	short := Position{Size: -2, EntryPrice: 50000}

	assert.Equal(t, PosLong, long.Side())
	assert.Equal(t, PosShort, short.Side())
	assert.Equal(t, 100.0, long.ProfitPoints(50100))
	assert.Equal(t, -100.0, short.ProfitPoints(50100))
	assert.Equal(t, 200.0, long.RawProfit(50100))
	assert.InDelta(t, 0.002, long.ProfitRatio(50100), 1e-12)
	assert.Equal(t, SideBuy, short.Side().CloseSide())

	require.ErrorIs(t, Position{Size: 1}.Validate(), ErrInvalidPosition)
	require.ErrorIs(t, Position{EntryPrice: 1}.Validate(), ErrInvalidPosition)
	require.NoError(t, long.Validate())
}

func TestBracketFields(t *testing.T) {
	f := NewBracket(49500, 53000).Fields()
	assert.Equal(t, "49500", f["bracket_stop_loss_price"])
	assert.Equal(t, "49500", f["bracket_stop_loss_limit_price"])
	assert.Equal(t, "53000", f["bracket_take_profit_price"])
	assert.Equal(t, "53000", f["bracket_take_profit_limit_price"])
	assert.Equal(t, "last_traded_price", f["bracket_stop_trigger_method"])

	stopOnly := NewStopBracket(50250.5).Fields()
	assert.Equal(t, "50250.5", stopOnly["bracket_stop_loss_price"])
	_, ok := stopOnly["bracket_take_profit_price"]
	assert.False(t, ok)
}
