package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"trade_bot/internal/models"
	"trade_bot/pkg/db"
)

const (
	createOrdersSQL = `CREATE TABLE IF NOT EXISTS orders (
	key        text PRIMARY KEY,
	body       jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`
	upsertOrderSQL = `INSERT INTO orders (key, body) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`
	selectOrderSQL = `SELECT body FROM orders WHERE key = $1`
)

type PgMirror struct {
	tm db.TxManager
}

func NewPgMirror(tm db.TxManager) *PgMirror {
	return &PgMirror{tm: tm}
}

func (m *PgMirror) EnsureSchema(ctx context.Context) error {
	_, err := m.tm.Conn().Exec(ctx, createOrdersSQL)
	return errors.Wrap(err, "create orders table")
}

func (m *PgMirror) Put(ctx context.Context, o models.Order) error {
	if err := validID(o.ID); err != nil {
		return err
	}
	raw, err := encode(o)
	if err != nil {
		return err
	}
	return m.tm.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, upsertOrderSQL, orderKey(o.ID), raw)
		return err
	})
}

func (m *PgMirror) Get(ctx context.Context, id string) (models.Order, error) {
	var raw []byte
	err := m.tm.Conn().QueryRow(ctx, selectOrderSQL, orderKey(id)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, errors.Wrapf(err, "select order %s", id)
	}
	return decode(raw)
}
