package models

type Market struct {
	ProductID     int64
	Symbol        string
	TickSize      float64
	ContractValue float64
}

type Balance struct {
	Asset     string
	Available float64
	Total     float64
}

// TradeEvent один кадр aggTrade.
type TradeEvent struct {
	Price        float64
	Quantity     float64
	IsBuyerMaker bool
}

// BuyQty агрессор покупатель, если maker продавец.
func (e TradeEvent) BuyQty() float64 {
	if e.IsBuyerMaker {
		return 0
	}
	return e.Quantity
}

func (e TradeEvent) SellQty() float64 {
	if e.IsBuyerMaker {
		return e.Quantity
	}
	return 0
}
