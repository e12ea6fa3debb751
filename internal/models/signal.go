package models

import "strings"

// Signal внешний сигнал из шины. Текст непрозрачен, из него вытаскиваем только намерение.
type Signal struct {
	Text          string
	Price         *float64
	SupplyZoneMin *float64
	DemandZoneMin *float64
}

type Intent int

const (
	IntentNone Intent = iota
	IntentTakeProfit
	IntentBuy
	IntentSell
)

func (i Intent) String() string {
	switch i {
	case IntentTakeProfit:
		return "take_profit"
	case IntentBuy:
		return "buy"
	case IntentSell:
		return "sell"
	default:
		return "none"
	}
}

// Side сторона входа для направленного намерения.
func (i Intent) Side() Side {
	switch i {
	case IntentBuy:
		return SideBuy
	case IntentSell:
		return SideSell
	default:
		return SideNone
	}
}

// Intent порядок проверок важен: take profit раньше направления, short раньше buy.
func (s Signal) Intent() Intent {
	text := strings.ToLower(s.Text)
	switch {
	case strings.Contains(text, "take profit") || strings.Contains(text, "tp"):
		return IntentTakeProfit
	case strings.Contains(text, "short"):
		return IntentSell
	case strings.Contains(text, "buy"):
		return IntentBuy
	default:
		return IntentNone
	}
}

// SameText дедупликация только по тексту, числа не сравниваются.
func (s Signal) SameText(other *Signal) bool {
	return other != nil && s.Text == other.Text
}

func (s Signal) HasZones() bool {
	return s.SupplyZoneMin != nil && s.DemandZoneMin != nil
}
