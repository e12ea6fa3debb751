package positions

import (
	"context"
	"strings"
	"sync"
	"time"

	"trade_bot/internal/models"
	healthsvc "trade_bot/internal/modules/health/service"
	storesvc "trade_bot/internal/modules/order_store/service"
	"trade_bot/pkg/logger"
)

// Gateway биржевые вызовы, которые нужны стору. Реализует delta_client.
type Gateway interface {
	FetchPositions(ctx context.Context) ([]models.Position, error)
	FetchOpenOrders(ctx context.Context, symbol string) ([]models.Order, error)
	CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error)
	CancelOrder(ctx context.Context, id, symbol string) error
	ModifyBracket(ctx context.Context, orderID string, productID int64, productSymbol string, params models.BracketParams) (models.Order, error)
}

type Config struct {
	Symbol          string
	ProductID       int64
	RefreshInterval time.Duration
	OrderTTL        time.Duration
}

type cachedOrder struct {
	order     models.Order
	touchedAt time.Time
}

// Store локальный вид позиций и ордеров. Биржа источник истины,
// здесь best-effort кэш, который пишется после каждого вызова шлюза.
type Store struct {
	cfg     Config
	gw      Gateway
	mirror  storesvc.Mirror
	metrics *healthsvc.Metrics
	health  *healthsvc.State
	now     func() time.Time

	refreshMu sync.Mutex // сериализует походы на биржу за позициями

	mu          sync.Mutex
	snapshot    []models.Position
	refreshedAt time.Time
	trails      map[string]*models.TrailState
	orders      map[string]cachedOrder
}

type Option func(*Store)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithHealth(state *healthsvc.State, m *healthsvc.Metrics) Option {
	return func(s *Store) {
		s.health = state
		s.metrics = m
	}
}

func NewStore(cfg Config, gw Gateway, mirror storesvc.Mirror, opts ...Option) *Store {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Second
	}
	if cfg.OrderTTL <= 0 {
		cfg.OrderTTL = time.Minute
	}
	if mirror == nil {
		mirror = storesvc.NewMemoryMirror()
	}
	s := &Store{
		cfg:    cfg,
		gw:     gw,
		mirror: mirror,
		now:    time.Now,
		trails: map[string]*models.TrailState{},
		orders: map[string]cachedOrder{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Refresh не чаще RefreshInterval. Между походами на биржу отдаёт кэш.
// Ошибка шлюза оставляет прошлый снимок и трейл-стейт нетронутыми.
func (s *Store) Refresh(ctx context.Context) []models.Position {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	now := s.now()
	s.mu.Lock()
	if !s.refreshedAt.IsZero() && now.Sub(s.refreshedAt) < s.cfg.RefreshInterval {
		out := append([]models.Position(nil), s.snapshot...)
		s.mu.Unlock()
		return out
	}
	s.mu.Unlock()

	raw, err := s.gw.FetchPositions(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshedAt = now
	if err != nil {
		logger.Warn("[POS] fetch positions: %v (keep %d cached)", err, len(s.snapshot))
		s.metrics.GatewayError("fetch_positions")
		return append([]models.Position(nil), s.snapshot...)
	}

	next := s.filter(raw)
	s.snapshot = next

	if len(next) == 0 {
		if len(s.trails) > 0 {
			logger.Info("[POS] no open positions, purge %d trail states", len(s.trails))
		}
		s.trails = map[string]*models.TrailState{}
	} else {
		alive := make(map[string]struct{}, len(next))
		for _, p := range next {
			alive[p.ID] = struct{}{}
		}
		for id := range s.trails {
			if _, ok := alive[id]; !ok {
				delete(s.trails, id)
			}
		}
	}
	s.pruneOrdersLocked(now)
	if s.health != nil {
		s.health.SetOpenPositions(len(next))
	}

	return append([]models.Position(nil), next...)
}

// Invalidate следующий Refresh пойдёт на биржу независимо от интервала.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.refreshedAt = time.Time{}
	s.mu.Unlock()
}

// Live свежие позиции мимо кэша, для оркестратора.
func (s *Store) Live(ctx context.Context) ([]models.Position, error) {
	raw, err := s.gw.FetchPositions(ctx)
	if err != nil {
		s.metrics.GatewayError("fetch_positions")
		return nil, err
	}
	return s.filter(raw), nil
}

func (s *Store) Snapshot() ([]models.Position, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Position(nil), s.snapshot...), s.refreshedAt
}

func (s *Store) filter(raw []models.Position) []models.Position {
	out := make([]models.Position, 0, len(raw))
	for _, p := range raw {
		if p.Size == 0 {
			continue
		}
		if s.cfg.Symbol != "" && !strings.EqualFold(p.Symbol, s.cfg.Symbol) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// UpdateTrail read-modify-write трейл-стейта под общим мьютексом.
func (s *Store) UpdateTrail(id string, fn func(st *models.TrailState)) models.TrailState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.trails[id]
	if !ok {
		st = &models.TrailState{PositionID: id}
		s.trails[id] = st
	}
	fn(st)
	return *st
}

func (s *Store) Trail(id string) (models.TrailState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.trails[id]
	if !ok {
		return models.TrailState{}, false
	}
	return *st, true
}

func (s *Store) TrailCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trails)
}
