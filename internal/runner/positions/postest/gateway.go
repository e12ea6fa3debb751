// Package postest фейковый шлюз биржи для тестов раннеров.
package postest

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"trade_bot/internal/models"
)

// Call один вызов шлюза в порядке поступления.
type Call struct {
	Op      string
	Request models.OrderRequest
	ID      string
	Bracket models.BracketParams
}

type Gateway struct {
	mu sync.Mutex

	Positions    []models.Position
	Orders       []models.Order
	PositionsErr error
	OrdersErr    error
	CreateErr    error
	BracketErr   error
	CancelErr    error
	// FlattenOnClose reduce-only ордер убирает позицию из следующего FetchPositions.
	FlattenOnClose bool

	calls  []Call
	nextID int
}

func (g *Gateway) FetchPositions(context.Context) ([]models.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: "fetch_positions"})
	if g.PositionsErr != nil {
		return nil, g.PositionsErr
	}
	return append([]models.Position(nil), g.Positions...), nil
}

func (g *Gateway) FetchOpenOrders(_ context.Context, symbol string) ([]models.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: "fetch_open_orders"})
	if g.OrdersErr != nil {
		return nil, g.OrdersErr
	}
	out := make([]models.Order, 0, len(g.Orders))
	for _, o := range g.Orders {
		if o.IsOpen() {
			out = append(out, o)
		}
	}
	return out, nil
}

func (g *Gateway) CreateOrder(_ context.Context, req models.OrderRequest) (models.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: "create_order", Request: req})
	if g.CreateErr != nil {
		return models.Order{}, g.CreateErr
	}
	g.nextID++
	o := models.Order{
		ID:          strconv.Itoa(g.nextID),
		Symbol:      req.Symbol,
		ProductID:   req.ProductID,
		Side:        req.Side,
		Type:        req.Type,
		Amount:      req.Amount,
		Price:       req.Price,
		Status:      models.StatusOpen,
		TimeInForce: req.TimeInForce,
	}
	if req.Type == models.OrderMarket {
		o.Status = models.StatusFilled
	} else {
		g.Orders = append(g.Orders, o)
	}
	if req.ReduceOnly && g.FlattenOnClose {
		kept := g.Positions[:0]
		for _, p := range g.Positions {
			if p.Side().CloseSide() != req.Side {
				kept = append(kept, p)
			}
		}
		g.Positions = kept
	}
	return o, nil
}

func (g *Gateway) CancelOrder(_ context.Context, id, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: "cancel_order", ID: id})
	if g.CancelErr != nil {
		return g.CancelErr
	}
	for i, o := range g.Orders {
		if o.ID == id {
			g.Orders[i].Status = models.StatusCanceled
			return nil
		}
	}
	return errors.Errorf("order %s not found", id)
}

func (g *Gateway) ModifyBracket(_ context.Context, id string, productID int64, symbol string, params models.BracketParams) (models.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: "modify_bracket", ID: id, Bracket: params})
	if g.BracketErr != nil {
		return models.Order{}, g.BracketErr
	}
	return models.Order{ID: id, Symbol: symbol, ProductID: productID, Status: models.StatusOpen, Bracket: params.Bracket()}, nil
}

func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// Ops только имена вызовов, удобно для проверки порядка.
func (g *Gateway) Ops() []string {
	calls := g.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Op
	}
	return out
}

// Created только create_order запросы.
func (g *Gateway) Created() []models.OrderRequest {
	var out []models.OrderRequest
	for _, c := range g.Calls() {
		if c.Op == "create_order" {
			out = append(out, c.Request)
		}
	}
	return out
}

func (g *Gateway) SetPositions(ps ...models.Position) {
	g.mu.Lock()
	g.Positions = ps
	g.mu.Unlock()
}
