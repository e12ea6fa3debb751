package helper

import (
	"context"
	"math"
	"time"
)

// TrailKey id позиции, когда биржа его не отдаёт: "BTCUSD:long".
func TrailKey(symbol, posSide string) string { return symbol + ":" + posSide }

func Round2(v float64) float64 { return math.Round(v*100) / 100 }

// SleepCtx фиксированная пауза, прерывается отменой контекста.
func SleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
