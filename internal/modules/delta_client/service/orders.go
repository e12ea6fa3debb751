package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"trade_bot/internal/models"
)

func (c *Client) FetchOpenOrders(ctx context.Context, symbol string) ([]models.Order, error) {
	var raw []wireOrder
	if err := c.do(ctx, call{
		op:     "fetch_open_orders",
		client: c.priv,
		method: http.MethodGet,
		path:   "/v2/orders",
		query:  map[string]string{"states": "open,pending"},
	}, &raw); err != nil {
		return nil, err
	}

	out := make([]models.Order, 0, len(raw))
	for _, w := range raw {
		if symbol != "" && !strings.EqualFold(w.ProductSymbol, symbol) {
			continue
		}
		out = append(out, toOrder(w))
	}
	return out, nil
}

func (c *Client) CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error) {
	if req.Amount <= 0 {
		return models.Order{}, errors.Errorf("create order: amount must be positive, got %v", req.Amount)
	}
	body := createOrderBody{
		ProductID:     req.ProductID,
		ProductSymbol: req.Symbol,
		Size:          decimal.NewFromFloat(req.Amount).String(),
		Side:          string(req.Side),
		OrderType:     wireOrderType(req.Type),
		TimeInForce:   string(req.TimeInForce),
		ReduceOnly:    req.ReduceOnly,
	}
	if req.Type == models.OrderLimit {
		if req.Price <= 0 {
			return models.Order{}, errors.New("create order: limit order without price")
		}
		body.LimitPrice = decimal.NewFromFloat(req.Price).String()
	}

	var raw wireOrder
	if err := c.do(ctx, call{
		op:     "create_order",
		client: c.priv,
		method: http.MethodPost,
		path:   "/v2/orders",
		body:   body,
	}, &raw); err != nil {
		return models.Order{}, err
	}

	o := toOrder(raw)
	// биржа может не вернуть часть полей, достраиваем из запроса
	if o.Symbol == "" {
		o.Symbol = req.Symbol
	}
	if o.Side == models.SideNone {
		o.Side = req.Side
	}
	if o.Amount == 0 {
		o.Amount = req.Amount
	}
	if o.Price == 0 {
		o.Price = req.Price
	}
	if o.Type == "" {
		o.Type = req.Type
	}
	if o.TimeInForce == "" {
		o.TimeInForce = req.TimeInForce
	}
	return o, nil
}

func (c *Client) CancelOrder(ctx context.Context, id, symbol string) error {
	body := cancelOrderBody{ID: wireID(id)}
	if m, err := c.Market(ctx, symbol); err == nil {
		body.ProductID = m.ProductID
	}
	return c.do(ctx, call{
		op:     "cancel_order",
		client: c.priv,
		method: http.MethodDelete,
		path:   "/v2/orders",
		body:   body,
	}, nil)
}

// ModifyBracket PUT /orders/bracket поверх существующего ордера или позиции.
func (c *Client) ModifyBracket(ctx context.Context, orderID string, productID int64, productSymbol string, params models.BracketParams) (models.Order, error) {
	body := map[string]any{
		"id":             wireID(orderID),
		"product_id":     productID,
		"product_symbol": productSymbol,
	}
	for k, v := range params.Fields() {
		body[k] = v
	}

	var raw wireOrder
	if err := c.do(ctx, call{
		op:     "modify_bracket",
		client: c.priv,
		method: http.MethodPut,
		path:   "/v2/orders/bracket",
		body:   body,
	}, &raw); err != nil {
		return models.Order{}, err
	}

	o := toOrder(raw)
	if o.ID == "" {
		o.ID = orderID
	}
	if o.Symbol == "" {
		o.Symbol = productSymbol
	}
	if o.ProductID == 0 {
		o.ProductID = productID
	}
	return o, nil
}

func toOrder(w wireOrder) models.Order {
	o := models.Order{
		ID:          string(w.ID),
		Symbol:      w.ProductSymbol,
		ProductID:   w.ProductID,
		Side:        models.Side(strings.ToLower(w.Side)),
		Type:        orderType(w.OrderType),
		Amount:      w.Size.V,
		Price:       w.LimitPrice.V,
		Status:      orderStatus(w.State),
		TimeInForce: models.TimeInForce(strings.ToLower(w.TimeInForce)),
		Timestamp:   parseCreatedAt(w.CreatedAt),
	}
	if w.BracketStopLossPrice.OK || w.BracketTakeProfitPrice.OK {
		o.Bracket = &models.Bracket{
			StopLoss:   w.BracketStopLossPrice.V,
			TakeProfit: w.BracketTakeProfitPrice.V,
		}
	}
	return o
}

func orderStatus(state string) models.OrderStatus {
	switch strings.ToLower(state) {
	case "closed", "filled":
		return models.StatusFilled
	case "cancelled", "canceled":
		return models.StatusCanceled
	default:
		// open, pending и пустое считаем открытым
		return models.StatusOpen
	}
}

func orderType(t string) models.OrderType {
	switch strings.ToLower(t) {
	case "market_order", "market":
		return models.OrderMarket
	case "limit_order", "limit":
		return models.OrderLimit
	default:
		return ""
	}
}

func wireOrderType(t models.OrderType) string {
	if t == models.OrderMarket {
		return "market_order"
	}
	return "limit_order"
}
