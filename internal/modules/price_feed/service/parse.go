package service

import (
	"strconv"

	"github.com/bytedance/sonic"

	"trade_bot/internal/models"
)

// aggTrade кадр. Указатели, чтобы отличать "нет поля" от нуля.
type aggTradeFrame struct {
	Price        *string `json:"p"`
	Quantity     *string `json:"q"`
	IsBuyerMaker *bool   `json:"m"`
}

// parseTrade false для всего, что не полноценная сделка (ответ на SUBSCRIBE, мусор, пустые поля).
func parseTrade(msg []byte) (models.TradeEvent, bool) {
	var f aggTradeFrame
	if err := sonic.Unmarshal(msg, &f); err != nil {
		return models.TradeEvent{}, false
	}
	if f.Price == nil || f.Quantity == nil || f.IsBuyerMaker == nil {
		return models.TradeEvent{}, false
	}
	price, err := strconv.ParseFloat(*f.Price, 64)
	if err != nil || price <= 0 {
		return models.TradeEvent{}, false
	}
	qty, err := strconv.ParseFloat(*f.Quantity, 64)
	if err != nil {
		return models.TradeEvent{}, false
	}
	return models.TradeEvent{
		Price:        price,
		Quantity:     qty,
		IsBuyerMaker: *f.IsBuyerMaker,
	}, true
}

func subscribeRequest(stream string) map[string]any {
	return map[string]any{
		"method": "SUBSCRIBE",
		"params": []string{stream},
		"id":     1,
	}
}
