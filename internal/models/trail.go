package models

import "time"

type TrailRule string

const (
	RuleFixedStop      TrailRule = "fixed_stop"
	RuleLock50         TrailRule = "lock_50"
	RuleDynamic        TrailRule = "dynamic"
	RulePartialBooking TrailRule = "partial_booking"
)

// ForceCloses правила, при которых пересечение стопа закрывает позицию маркетом.
func (r TrailRule) ForceCloses() bool {
	return r == RuleFixedStop || r == RuleLock50 || r == RuleDynamic
}

// TrailState состояние трейлинга по одному id позиции.
type TrailState struct {
	PositionID   string
	Side         PosSide
	EntryPrice   float64
	MaxExcursion float64 // max прибыль в пунктах, не убывает
	StopPrice    float64
	HasStop      bool
	Rule         TrailRule

	ClosingAt   time.Time // когда отправили принудительное закрытие
	BracketStop float64   // последний стоп, отправленный в bracket
	Display     string    // последняя выведенная строка, для дебаунса
}

// Rebind привязывает состояние к позиции. Если под тем же id уже другая сторона
// или другой вход, позиция переоткрыта и трейлинг начинается заново.
// true, если сброшено ранее привязанное состояние.
func (s *TrailState) Rebind(side PosSide, entry float64) bool {
	if s.Side == side && s.EntryPrice == entry {
		return false
	}
	bound := s.Side != ""
	*s = TrailState{PositionID: s.PositionID, Side: side, EntryPrice: entry}
	return bound
}

// Tighten стоп только подтягивается: long вверх, short вниз.
func (s *TrailState) Tighten(candidate float64) float64 {
	if !s.HasStop {
		s.StopPrice = candidate
		s.HasStop = true
		return s.StopPrice
	}
	if s.Side == PosShort {
		if candidate < s.StopPrice {
			s.StopPrice = candidate
		}
	} else if candidate > s.StopPrice {
		s.StopPrice = candidate
	}
	return s.StopPrice
}

// Crossed цена ушла за стоп в неблагоприятную сторону.
func (s *TrailState) Crossed(live float64) bool {
	if !s.HasStop {
		return false
	}
	if s.Side == PosShort {
		return live > s.StopPrice
	}
	return live < s.StopPrice
}

func (s *TrailState) Observe(profitPoints float64) float64 {
	if profitPoints > s.MaxExcursion {
		s.MaxExcursion = profitPoints
	}
	return s.MaxExcursion
}
