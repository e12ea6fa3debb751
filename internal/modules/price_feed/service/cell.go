package service

import (
	"sync/atomic"
	"time"

	"trade_bot/internal/models"
)

// Cell одна ячейка с последней ценой. Пишет только стрим, читают все без локов.
type Cell struct {
	p atomic.Pointer[models.PricePoint]
}

func NewCell() *Cell { return &Cell{} }

func (c *Cell) Store(price float64, at time.Time) {
	c.p.Store(&models.PricePoint{Price: price, ObservedAt: at})
}

func (c *Cell) Load() (models.PricePoint, bool) {
	pp := c.p.Load()
	if pp == nil {
		return models.PricePoint{}, false
	}
	return *pp, true
}

func (c *Cell) CurrentPrice() (float64, bool) {
	pp := c.p.Load()
	if pp == nil {
		return 0, false
	}
	return pp.Price, true
}
