package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderLimit  OrderType = "limit"
	OrderMarket OrderType = "market"
)

type OrderStatus string

const (
	StatusOpen     OrderStatus = "open"
	StatusFilled   OrderStatus = "filled"
	StatusCanceled OrderStatus = "canceled"
)

type TimeInForce string

const (
	GTC TimeInForce = "gtc"
	IOC TimeInForce = "ioc"
)

const TriggerLastTradedPrice = "last_traded_price"

type Bracket struct {
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
}

// Order локальная копия ордера. Истина на бирже, здесь best-effort кэш.
type Order struct {
	ID          string            `json:"id"`
	Symbol      string            `json:"symbol"`
	ProductID   int64             `json:"product_id,omitempty"`
	Side        Side              `json:"side"`
	Type        OrderType         `json:"type"`
	Amount      float64           `json:"amount"`
	Price       float64           `json:"price,omitempty"`
	Status      OrderStatus       `json:"status"`
	TimeInForce TimeInForce       `json:"time_in_force,omitempty"`
	Bracket     *Bracket          `json:"bracket,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

func (o Order) IsOpen() bool { return o.Status == StatusOpen }

// SameSide сравнивает без учёта регистра, биржа иногда отдаёт BUY/SELL.
func (o Order) SameSide(s Side) bool {
	return strings.EqualFold(string(o.Side), string(s))
}

type OrderRequest struct {
	Symbol      string
	ProductID   int64
	Type        OrderType
	Side        Side
	Amount      float64
	Price       float64 // только для limit
	TimeInForce TimeInForce
	ReduceOnly  bool
}

// BracketParams стоп-лосс/тейк-профит для PUT /orders/bracket.
// Нулевые поля не отправляются.
type BracketParams struct {
	StopLossPrice        float64
	StopLossLimitPrice   float64
	TakeProfitPrice      float64
	TakeProfitLimitPrice float64
	TriggerMethod        string
}

// NewBracket стоп и тейк с лимитными ценами, равными триггерам.
func NewBracket(stop, target float64) BracketParams {
	return BracketParams{
		StopLossPrice:        stop,
		StopLossLimitPrice:   stop,
		TakeProfitPrice:      target,
		TakeProfitLimitPrice: target,
		TriggerMethod:        TriggerLastTradedPrice,
	}
}

// NewStopBracket только стоп, тейк не трогаем.
func NewStopBracket(stop float64) BracketParams {
	return BracketParams{
		StopLossPrice:      stop,
		StopLossLimitPrice: stop,
		TriggerMethod:      TriggerLastTradedPrice,
	}
}

func (b BracketParams) Fields() map[string]string {
	out := make(map[string]string, 5)
	put := func(k string, v float64) {
		if v != 0 {
			out[k] = decimal.NewFromFloat(v).String()
		}
	}
	put("bracket_stop_loss_price", b.StopLossPrice)
	put("bracket_stop_loss_limit_price", b.StopLossLimitPrice)
	put("bracket_take_profit_price", b.TakeProfitPrice)
	put("bracket_take_profit_limit_price", b.TakeProfitLimitPrice)
	if b.TriggerMethod != "" {
		out["bracket_stop_trigger_method"] = b.TriggerMethod
	}
	return out
}

func (b BracketParams) Bracket() *Bracket {
	return &Bracket{StopLoss: b.StopLossPrice, TakeProfit: b.TakeProfitPrice}
}
