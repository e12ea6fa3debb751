package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"trade_bot/internal/models"
)

// document форма ключа "signal". Числа приходят и строкой, и числом, и пустой строкой.
type document struct {
	LastSignal struct {
		Text  string `json:"text"`
		Price any    `json:"price"`
	} `json:"last_signal"`
	SupplyZone struct {
		Min any `json:"min"`
	} `json:"supply_zone"`
	DemandZone struct {
		Min any `json:"min"`
	} `json:"demand_zone"`
}

// RedisBus один ключ, без подтверждений: один и тот же сигнал читается каждый опрос.
type RedisBus struct {
	rdb *redis.Client
	key string
}

func NewRedisBus(rdb *redis.Client, key string) *RedisBus {
	if key == "" {
		key = "signal"
	}
	return &RedisBus{rdb: rdb, key: key}
}

// Fetch nil, nil если ключа нет.
func (b *RedisBus) Fetch(ctx context.Context) (*models.Signal, error) {
	raw, err := b.rdb.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis get %s", b.key)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return Decode(raw)
}

func (b *RedisBus) Publish(ctx context.Context, sig models.Signal) error {
	raw, err := Encode(sig)
	if err != nil {
		return err
	}
	return errors.Wrapf(b.rdb.Set(ctx, b.key, raw, 0).Err(), "redis set %s", b.key)
}

func Decode(raw []byte) (*models.Signal, error) {
	var doc document
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "decode signal")
	}
	return &models.Signal{
		Text:          doc.LastSignal.Text,
		Price:         number(doc.LastSignal.Price),
		SupplyZoneMin: number(doc.SupplyZone.Min),
		DemandZoneMin: number(doc.DemandZone.Min),
	}, nil
}

func Encode(sig models.Signal) ([]byte, error) {
	var doc document
	doc.LastSignal.Text = sig.Text
	if sig.Price != nil {
		doc.LastSignal.Price = *sig.Price
	}
	if sig.SupplyZoneMin != nil {
		doc.SupplyZone.Min = *sig.SupplyZoneMin
	}
	if sig.DemandZoneMin != nil {
		doc.DemandZone.Min = *sig.DemandZoneMin
	}
	raw, err := sonic.Marshal(doc)
	return raw, errors.Wrap(err, "encode signal")
}

// number пустое и нечисловое считаем отсутствующим.
func number(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int64:
		f = float64(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}
