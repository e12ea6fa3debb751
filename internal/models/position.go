package models

import (
	"errors"
	"math"
	"time"
)

var ErrInvalidPosition = errors.New("invalid position")

// PricePoint последняя цена из стрима и момент, когда она пришла.
type PricePoint struct {
	Price      float64
	ObservedAt time.Time
}

// Position каноничная позиция после нормализации на границе шлюза.
// Size со знаком: > 0 long, < 0 short.
type Position struct {
	ID         string
	Symbol     string
	ProductID  int64
	Size       float64
	EntryPrice float64
}

func (p Position) Side() PosSide {
	if p.Size < 0 {
		return PosShort
	}
	return PosLong
}

func (p Position) AbsSize() float64 { return math.Abs(p.Size) }

func (p Position) Validate() error {
	if p.EntryPrice <= 0 || math.IsNaN(p.EntryPrice) || math.IsInf(p.EntryPrice, 0) {
		return ErrInvalidPosition
	}
	if p.Size == 0 || math.IsNaN(p.Size) {
		return ErrInvalidPosition
	}
	return nil
}

// ProfitPoints текущая прибыль в пунктах цены (без учёта размера).
func (p Position) ProfitPoints(live float64) float64 {
	if p.Side() == PosShort {
		return p.EntryPrice - live
	}
	return live - p.EntryPrice
}

func (p Position) ProfitRatio(live float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return p.ProfitPoints(live) / p.EntryPrice
}

// RawProfit прибыль с учётом размера позиции.
func (p Position) RawProfit(live float64) float64 {
	return p.ProfitPoints(live) * p.AbsSize()
}
