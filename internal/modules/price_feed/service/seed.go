package service

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/pkg/errors"

	"trade_bot/pkg/logger"
)

// PriceSource разовый REST-запрос цены, чтобы не ждать первый кадр стрима.
type PriceSource interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

type BinanceSource struct {
	client *futures.Client
}

// NewBinanceSource публичный эндпоинт, ключи не нужны.
func NewBinanceSource() *BinanceSource {
	return &BinanceSource{client: futures.NewClient("", "")}
}

func (b *BinanceSource) LastPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "binance ticker price %s", symbol)
	}
	for _, p := range prices {
		if p == nil || p.Symbol != symbol {
			continue
		}
		v, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "parse price %q", p.Price)
		}
		return v, nil
	}
	return 0, errors.Errorf("binance: no price for %s", symbol)
}

// Seed кладёт цену в пустую ячейку. Ошибка только логируется, стрим всё равно догонит.
func Seed(ctx context.Context, cell *Cell, src PriceSource, symbol string, now func() time.Time) bool {
	if _, ok := cell.Load(); ok {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	px, err := src.LastPrice(ctx, symbol)
	if err != nil {
		logger.Error("[FEED] seed price failed: %v", err)
		return false
	}
	if px <= 0 {
		return false
	}
	cell.Store(px, now())
	logger.Info("[FEED] seeded %s price %.2f from REST", symbol, px)
	return true
}
