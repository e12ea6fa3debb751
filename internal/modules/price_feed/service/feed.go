package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	healthsvc "trade_bot/internal/modules/health/service"
	"trade_bot/pkg/logger"
)

type State int32

const (
	StateConnecting State = iota
	StateSubscribed
	StateStale
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateStale:
		return "stale"
	default:
		return "closed"
	}
}

// Conn то, что нужно фиду от websocket-соединения. *websocket.Conn подходит как есть.
type Conn interface {
	WriteJSON(v interface{}) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type wsDialer struct {
	d *websocket.Dialer
}

func (w wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := w.d.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func NewWSDialer() Dialer {
	return wsDialer{d: &websocket.Dialer{HandshakeTimeout: 10 * time.Second}}
}

type Config struct {
	URL        string
	Stream     string
	StaleAfter time.Duration
	Interval   time.Duration
}

// Feed держит одну подписку на aggTrade и сторож, который переподписывается при протухании цены.
// Переподключение только по протуханию: закрытие сокета само по себе ничего не перезапускает.
type Feed struct {
	cfg     Config
	cell    *Cell
	dialer  Dialer
	now     func() time.Time
	state   *healthsvc.State
	metrics *healthsvc.Metrics

	mu          sync.Mutex
	conn        Conn
	gen         uint64
	lastRestart time.Time

	status     atomic.Int32
	reconnects atomic.Int64
}

type Option func(*Feed)

func WithClock(now func() time.Time) Option { return func(f *Feed) { f.now = now } }
func WithDialer(d Dialer) Option            { return func(f *Feed) { f.dialer = d } }

func WithHealth(state *healthsvc.State, m *healthsvc.Metrics) Option {
	return func(f *Feed) {
		f.state = state
		f.metrics = m
	}
}

func NewFeed(cfg Config, cell *Cell, opts ...Option) *Feed {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 3 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	f := &Feed{
		cfg:    cfg,
		cell:   cell,
		dialer: NewWSDialer(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(f)
	}
	f.status.Store(int32(StateClosed))
	return f
}

func (f *Feed) Cell() *Cell       { return f.cell }
func (f *Feed) State() State      { return State(f.status.Load()) }
func (f *Feed) Reconnects() int64 { return f.reconnects.Load() }

// Start первая подписка и сторож. Оба живут до отмены ctx.
func (f *Feed) Start(ctx context.Context) {
	f.mu.Lock()
	f.lastRestart = f.now()
	f.mu.Unlock()

	f.subscribe(ctx)
	go f.watchdog(ctx)
}

func (f *Feed) watchdog(ctx context.Context) {
	t := time.NewTicker(f.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			f.closeConn()
			return
		case <-t.C:
			f.checkStale(ctx, f.now())
		}
	}
}

// checkStale true, если цена протухла и запущена новая подписка.
// Отсчёт идёт от max(последняя цена, последний рестарт): один рестарт на один период тишины.
func (f *Feed) checkStale(ctx context.Context, now time.Time) bool {
	f.mu.Lock()
	ref := f.lastRestart
	if pp, ok := f.cell.Load(); ok && pp.ObservedAt.After(ref) {
		ref = pp.ObservedAt
	}
	if now.Sub(ref) <= f.cfg.StaleAfter {
		f.mu.Unlock()
		return false
	}

	old := f.conn
	f.conn = nil
	f.lastRestart = now
	f.gen++
	gen := f.gen
	f.mu.Unlock()

	f.status.Store(int32(StateStale))
	if old != nil {
		_ = old.Close()
	}
	n := f.reconnects.Add(1)
	f.metrics.FeedReconnect()
	logger.Info("[WS] price stale for %s, resubscribing (#%d)", now.Sub(ref).Truncate(time.Millisecond), n)

	go f.run(ctx, gen)
	return true
}

func (f *Feed) subscribe(ctx context.Context) {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	f.mu.Unlock()

	go f.run(ctx, gen)
}

func (f *Feed) current(gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen == gen
}

func (f *Feed) run(ctx context.Context, gen uint64) {
	f.status.Store(int32(StateConnecting))
	logger.Info("[WS] connect %s %s", f.cfg.URL, f.cfg.Stream)

	conn, err := f.dialer.Dial(ctx, f.cfg.URL)
	if err != nil {
		logger.Error("[WS] dial error: %v", err)
		f.markClosed(gen)
		return
	}

	f.mu.Lock()
	if f.gen != gen || ctx.Err() != nil {
		// сторож уже поднял следующую подписку
		f.mu.Unlock()
		_ = conn.Close()
		return
	}
	f.conn = conn
	f.mu.Unlock()

	if err := conn.WriteJSON(subscribeRequest(f.cfg.Stream)); err != nil {
		logger.Error("[WS] subscribe error: %v", err)
		_ = conn.Close()
		f.markClosed(gen)
		return
	}
	f.status.Store(int32(StateSubscribed))
	if f.state != nil {
		f.state.SetWSConnected(true)
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if f.current(gen) {
				logger.Error("[WS] read error: %v", err)
			}
			_ = conn.Close()
			f.markClosed(gen)
			return
		}

		ev, ok := parseTrade(msg)
		if !ok {
			f.metrics.FeedDropped()
			continue
		}
		at := f.now()
		f.cell.Store(ev.Price, at)
		f.metrics.FeedMessage(ev.Price)
		if f.state != nil {
			f.state.TouchTick(at, ev.Price)
		}
	}
}

// markClosed старые поколения не трогают статус свежей подписки.
func (f *Feed) markClosed(gen uint64) {
	if !f.current(gen) {
		return
	}
	f.status.Store(int32(StateClosed))
	if f.state != nil {
		f.state.SetWSConnected(false)
	}
}

func (f *Feed) closeConn() {
	f.mu.Lock()
	c := f.conn
	f.conn = nil
	f.gen++
	f.mu.Unlock()
	if c != nil {
		_ = c.Close()
	}
	f.status.Store(int32(StateClosed))
}
