package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"trade_bot/internal/models"
)

type RedisMirror struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisMirror ttl=0 хранит без срока.
func NewRedisMirror(rdb *redis.Client, ttl time.Duration) *RedisMirror {
	return &RedisMirror{rdb: rdb, ttl: ttl}
}

func (m *RedisMirror) Put(ctx context.Context, o models.Order) error {
	if err := validID(o.ID); err != nil {
		return err
	}
	raw, err := encode(o)
	if err != nil {
		return err
	}
	return errors.Wrapf(m.rdb.Set(ctx, orderKey(o.ID), raw, m.ttl).Err(), "redis set order %s", o.ID)
}

func (m *RedisMirror) Get(ctx context.Context, id string) (models.Order, error) {
	raw, err := m.rdb.Get(ctx, orderKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Order{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, errors.Wrapf(err, "redis get order %s", id)
	}
	return decode(raw)
}
