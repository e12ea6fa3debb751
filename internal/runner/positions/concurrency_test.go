package positions_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_bot/internal/models"
	"trade_bot/internal/modules/config"
	storesvc "trade_bot/internal/modules/order_store/service"
	"trade_bot/internal/runner/orchestrator"
	"trade_bot/internal/runner/positions"
	"trade_bot/internal/runner/positions/postest"
	"trade_bot/internal/runner/trailing"
	"trade_bot/pkg/logger"
)

type fixedPrice float64

func (p fixedPrice) CurrentPrice() (float64, bool) { return float64(p), true }

func noSleep(context.Context, time.Duration) error { return nil }

// Трейлинг и обработка сигналов работают с одним Store одновременно.
func TestEngineAndOrchestratorShareStore(t *testing.T) {
	logger.InitNop()
	gw := &postest.Gateway{Positions: []models.Position{
		{ID: "a", Symbol: "BTCUSD", ProductID: 27, Size: 1, EntryPrice: 50000},
	}}
	mirror := storesvc.NewMemoryMirror()
	store := positions.NewStore(positions.Config{
		Symbol:          "BTCUSD",
		ProductID:       27,
		RefreshInterval: time.Millisecond,
	}, gw, mirror)

	price := fixedPrice(50200)
	engine := trailing.NewEngine(trailing.Config{Interval: time.Millisecond}, store, price,
		trailing.NewPolicy(config.DefaultTrailing()))
	orch := orchestrator.New(orchestrator.Config{
		Symbol:       "BTCUSD",
		EntryOffset:  50,
		StopOffset:   500,
		TargetOffset: 3000,
		OrderSize:    1,
	}, store, price, nil, orchestrator.WithSleep(noSleep))

	const signals = 20
	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			engine.Tick(ctx)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < signals; i++ {
			p, zone := 50200.0, 49000.0
			sig := models.Signal{Text: fmt.Sprintf("buy #%d", i), Price: &p, SupplyZoneMin: &zone, DemandZoneMin: &zone}
			_, outcome := orch.OnSignal(ctx, sig)
			assert.Equal(t, orchestrator.OutcomePlaced, outcome)
		}
	}()
	wg.Wait()

	created := gw.Created()
	require.Len(t, created, signals)
	assert.Len(t, store.LocalOrders(), signals)
	assert.Equal(t, signals, mirror.Len())

	st, ok := store.Trail("a")
	require.True(t, ok)
	assert.Equal(t, models.PosLong, st.Side)
	assert.Equal(t, 200.0, st.MaxExcursion)
	assert.Equal(t, 49500.0, st.StopPrice)
}
