package service

import (
	"context"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"trade_bot/internal/models"
)

type BadgerMirror struct {
	db *badger.DB
}

func OpenBadger(dir string) (*BadgerMirror, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("badger: dir is required")
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, errors.Wrapf(err, "badger open %s", dir)
	}
	return &BadgerMirror{db: db}, nil
}

func (m *BadgerMirror) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

func (m *BadgerMirror) Put(_ context.Context, o models.Order) error {
	if err := validID(o.ID); err != nil {
		return err
	}
	raw, err := encode(o)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(orderKey(o.ID)), raw)
	})
}

func (m *BadgerMirror) Get(_ context.Context, id string) (models.Order, error) {
	var raw []byte
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(orderKey(id)))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.Order{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, errors.Wrapf(err, "badger get order %s", id)
	}
	return decode(raw)
}
