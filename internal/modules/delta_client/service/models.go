package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

type envelope struct {
	Success bool                   `json:"success"`
	Result  sonic.NoCopyRawMessage `json:"result"` // ссылается на тело ответа, разбирается сразу
	Error   *apiError              `json:"error"`
}

type apiError struct {
	Code    string         `json:"code"`
	Context map[string]any `json:"context"`
}

// flexFloat биржа отдаёт цены то строкой, то числом. OK=false если не распарсилось.
type flexFloat struct {
	V  float64
	OK bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// мусор в одном поле не должен ронять весь ответ
		return nil
	}
	f.V, f.OK = v, true
	return nil
}

type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	*f = flexString(strings.Trim(s, `"`))
	return nil
}

type wireProduct struct {
	ID            int64     `json:"id"`
	Symbol        string    `json:"symbol"`
	TickSize      flexFloat `json:"tick_size"`
	ContractValue flexFloat `json:"contract_value"`
}

type wireBalance struct {
	AssetSymbol      string    `json:"asset_symbol"`
	AvailableBalance flexFloat `json:"available_balance"`
	Balance          flexFloat `json:"balance"`
}

// wirePosition все варианты имён полей, которые встречались в ответах.
type wirePosition struct {
	ID            flexString `json:"id"`
	ProductID     int64      `json:"product_id"`
	ProductSymbol string     `json:"product_symbol"`
	Symbol        string     `json:"symbol"`
	Size          flexFloat  `json:"size"`
	Contracts     flexFloat  `json:"contracts"`
	EntryPrice    flexFloat  `json:"entry_price"`
	EntryPriceAlt flexFloat  `json:"entryPrice"`
	Info          *struct {
		ProductSymbol string    `json:"product_symbol"`
		EntryPrice    flexFloat `json:"entry_price"`
	} `json:"info"`
}

type wireOrder struct {
	ID            flexString `json:"id"`
	ProductID     int64      `json:"product_id"`
	ProductSymbol string     `json:"product_symbol"`
	Side          string     `json:"side"`
	OrderType     string     `json:"order_type"`
	Size          flexFloat  `json:"size"`
	LimitPrice    flexFloat  `json:"limit_price"`
	State         string     `json:"state"`
	TimeInForce   string     `json:"time_in_force"`
	CreatedAt     string     `json:"created_at"`

	BracketStopLossPrice   flexFloat `json:"bracket_stop_loss_price"`
	BracketTakeProfitPrice flexFloat `json:"bracket_take_profit_price"`
}

type createOrderBody struct {
	ProductID     int64  `json:"product_id,omitempty"`
	ProductSymbol string `json:"product_symbol"`
	Size          string `json:"size"`
	Side          string `json:"side"`
	OrderType     string `json:"order_type"`
	LimitPrice    string `json:"limit_price,omitempty"`
	TimeInForce   string `json:"time_in_force,omitempty"`
	ReduceOnly    bool   `json:"reduce_only,omitempty"`
}

type cancelOrderBody struct {
	ID        any   `json:"id"`
	ProductID int64 `json:"product_id,omitempty"`
}

// created_at приходит в RFC3339 или в микросекундах
func parseCreatedAt(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMicro(n)
	}
	return time.Time{}
}

// wireID числовой id уходит числом, иначе как есть.
func wireID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
