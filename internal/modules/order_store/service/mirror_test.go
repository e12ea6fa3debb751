package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_bot/internal/models"
	"trade_bot/pkg/db"
)

func sampleOrder() models.Order {
	return models.Order{
		ID:          "1001",
		Symbol:      "BTCUSD",
		ProductID:   27,
		Side:        models.SideBuy,
		Type:        models.OrderLimit,
		Amount:      1,
		Price:       49950,
		Status:      models.StatusOpen,
		TimeInForce: models.GTC,
		Bracket:     &models.Bracket{StopLoss: 49500, TakeProfit: 53000},
		Params:      map[string]string{"bracket_stop_loss_price": "49500"},
		Timestamp:   time.Unix(1_700_000_000, 0).UTC(),
	}
}

func assertSameOrder(t *testing.T, want, got models.Order) {
	t.Helper()
	assert.True(t, want.Timestamp.Equal(got.Timestamp))
	want.Timestamp, got.Timestamp = time.Time{}, time.Time{}
	assert.Equal(t, want, got)
}

func exerciseMirror(t *testing.T, m Mirror) {
	t.Helper()
	ctx := context.Background()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	o := sampleOrder()
	require.NoError(t, m.Put(ctx, o))
	got, err := m.Get(ctx, o.ID)
	require.NoError(t, err)
	assertSameOrder(t, o, got)

	o.Status = models.StatusCanceled
	require.NoError(t, m.Put(ctx, o))
	got, err = m.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, got.Status)

	assert.Error(t, m.Put(ctx, models.Order{ID: " "}))
}

func TestMemoryMirror(t *testing.T) {
	m := NewMemoryMirror()
	exerciseMirror(t, m)
	assert.Equal(t, 1, m.Len())
}

func TestRedisMirror(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	exerciseMirror(t, NewRedisMirror(rdb, 0))
	assert.True(t, mr.Exists("order:1001"))
}

func TestBadgerMirror(t *testing.T) {
	m, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	exerciseMirror(t, m)
}

func TestOpenBadgerRequiresDir(t *testing.T) {
	_, err := OpenBadger("")
	assert.Error(t, err)
}

// fakeTx таблица orders в памяти поверх интерфейса Transaction.
type fakeTx struct {
	rows map[string][]byte
}

type fakeRow struct {
	raw []byte
	ok  bool
}

func (r fakeRow) Scan(dest ...any) error {
	if !r.ok {
		return pgx.ErrNoRows
	}
	*(dest[0].(*[]byte)) = r.raw
	return nil
}

func (f *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if sql == upsertOrderSQL {
		f.rows[args[0].(string)] = args[1].([]byte)
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeTx) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (f *fakeTx) QueryRow(_ context.Context, _ string, args ...interface{}) pgx.Row {
	raw, ok := f.rows[args[0].(string)]
	return fakeRow{raw: raw, ok: ok}
}

type fakeTxManager struct {
	tx *fakeTx
}

func (m *fakeTxManager) RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx db.Transaction) error) error {
	return fn(ctx, m.tx)
}

func (m *fakeTxManager) Conn() db.Transaction { return m.tx }

func TestPgMirror(t *testing.T) {
	tm := &fakeTxManager{tx: &fakeTx{rows: map[string][]byte{}}}
	m := NewPgMirror(tm)
	require.NoError(t, m.EnsureSchema(context.Background()))

	exerciseMirror(t, m)
	assert.Contains(t, tm.tx.rows, "order:1001")
}
