package positions

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"trade_bot/internal/models"
	"trade_bot/pkg/logger"
)

func (s *Store) PlaceLimit(ctx context.Context, side models.Side, amount, price float64) (models.Order, error) {
	o, err := s.gw.CreateOrder(ctx, models.OrderRequest{
		Symbol:      s.cfg.Symbol,
		ProductID:   s.cfg.ProductID,
		Type:        models.OrderLimit,
		Side:        side,
		Amount:      amount,
		Price:       price,
		TimeInForce: models.GTC,
	})
	if err != nil {
		s.metrics.GatewayError("create_order")
		return models.Order{}, errors.Wrapf(err, "place limit %s %v@%v", side, amount, price)
	}
	return s.record(ctx, o), nil
}

// ForceClose market IOC на весь размер, без проверок конфликтов.
func (s *Store) ForceClose(ctx context.Context, pos models.Position) (models.Order, error) {
	side := pos.Side().CloseSide()
	o, err := s.gw.CreateOrder(ctx, models.OrderRequest{
		Symbol:      pos.Symbol,
		ProductID:   pos.ProductID,
		Type:        models.OrderMarket,
		Side:        side,
		Amount:      pos.AbsSize(),
		TimeInForce: models.IOC,
		ReduceOnly:  true,
	})
	if err != nil {
		s.metrics.GatewayError("force_close")
		return models.Order{}, errors.Wrapf(err, "force close %s %s", pos.ID, side)
	}
	return s.record(ctx, o), nil
}

func (s *Store) CancelOrder(ctx context.Context, o models.Order) error {
	if err := s.gw.CancelOrder(ctx, o.ID, s.cfg.Symbol); err != nil {
		s.metrics.GatewayError("cancel_order")
		return errors.Wrapf(err, "cancel order %s", o.ID)
	}
	o.Status = models.StatusCanceled
	s.record(ctx, o)
	return nil
}

// AttachBracket стоп/тейк поверх ордера или позиции с данным id.
func (s *Store) AttachBracket(ctx context.Context, id string, params models.BracketParams) (models.Order, error) {
	o, err := s.gw.ModifyBracket(ctx, id, s.cfg.ProductID, s.cfg.Symbol, params)
	if err != nil {
		s.metrics.GatewayError("modify_bracket")
		return models.Order{}, errors.Wrapf(err, "modify bracket %s", id)
	}

	s.mu.Lock()
	if prev, ok := s.orders[o.ID]; ok {
		// ответ биржи бывает неполным, недостающее берём из кэша
		if o.Side == models.SideNone {
			o.Side = prev.order.Side
		}
		if o.Amount == 0 {
			o.Amount = prev.order.Amount
		}
		if o.Price == 0 {
			o.Price = prev.order.Price
		}
		if o.Type == "" {
			o.Type = prev.order.Type
		}
		if o.TimeInForce == "" {
			o.TimeInForce = prev.order.TimeInForce
		}
	}
	s.mu.Unlock()

	if o.Bracket == nil {
		o.Bracket = params.Bracket()
	}
	o.Params = params.Fields()
	return s.record(ctx, o), nil
}

// HasOpenOrder сначала биржа, при её ошибке локальный кэш.
func (s *Store) HasOpenOrder(ctx context.Context, symbol string, side models.Side) bool {
	orders, err := s.gw.FetchOpenOrders(ctx, symbol)
	if err != nil {
		logger.Warn("[POS] fetch open orders: %v, fallback to local cache", err)
		s.metrics.GatewayError("fetch_open_orders")
		orders = s.LocalOrders()
	}
	for _, o := range orders {
		if o.IsOpen() && o.SameSide(side) {
			return true
		}
	}
	return false
}

// OpenOrders открытые ордера по символу с биржи, каждый попадает в кэш.
// Открытые в кэше, которых биржа больше не показывает, считаем исполненными.
func (s *Store) OpenOrders(ctx context.Context) ([]models.Order, error) {
	fetchedAt := s.now()
	orders, err := s.gw.FetchOpenOrders(ctx, s.cfg.Symbol)
	if err != nil {
		s.metrics.GatewayError("fetch_open_orders")
		return nil, errors.Wrap(err, "fetch open orders")
	}
	seen := make(map[string]struct{}, len(orders))
	for i := range orders {
		orders[i] = s.record(ctx, orders[i])
		seen[orders[i].ID] = struct{}{}
	}
	for _, o := range s.missingOpen(seen, fetchedAt) {
		o.Status = models.StatusFilled
		s.record(ctx, o)
		logger.Debug("[POS] order %s gone from exchange, marked filled", o.ID)
	}
	return orders, nil
}

// missingOpen открытые ордера кэша, которых нет в ответе биржи.
// Записанные после запроса не трогаем, биржа могла их ещё не показать.
func (s *Store) missingOpen(seen map[string]struct{}, fetchedAt time.Time) []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for id, c := range s.orders {
		if !c.order.IsOpen() || c.touchedAt.After(fetchedAt) {
			continue
		}
		if c.order.Symbol != "" && !strings.EqualFold(c.order.Symbol, s.cfg.Symbol) {
			continue
		}
		if _, ok := seen[id]; !ok {
			out = append(out, c.order)
		}
	}
	return out
}

func (s *Store) LocalOrders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Order, 0, len(s.orders))
	for _, c := range s.orders {
		out = append(out, c.order)
	}
	return out
}

func (s *Store) LocalOrder(id string) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.orders[id]
	return c.order, ok
}

// record пишет в кэш и зеркало. Ошибка зеркала только логируется.
func (s *Store) record(ctx context.Context, o models.Order) models.Order {
	now := s.now()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Timestamp.IsZero() {
		o.Timestamp = now
	}

	s.mu.Lock()
	s.orders[o.ID] = cachedOrder{order: o, touchedAt: now}
	s.mu.Unlock()

	if err := s.mirror.Put(ctx, o); err != nil {
		logger.Warn("[POS] mirror order %s: %v", o.ID, err)
		s.metrics.MirrorError()
	}
	return o
}

// pruneOrdersLocked выкидывает любые ордера, не обновлявшиеся дольше OrderTTL.
// Живые открытые ордера обновляет OpenOrders.
func (s *Store) pruneOrdersLocked(now time.Time) {
	for id, c := range s.orders {
		if now.Sub(c.touchedAt) > s.cfg.OrderTTL {
			delete(s.orders, id)
		}
	}
}
