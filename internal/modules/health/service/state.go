package service

import (
	"math"
	"sync/atomic"
	"time"
)

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	wsConnected  atomic.Bool
	lastTickUnix atomic.Int64 // unix seconds
	lastPrice    atomic.Uint64
	openPos      atomic.Int64
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

// TouchTick отметка последней цены из стрима.
func (s *State) TouchTick(t time.Time, price float64) {
	s.lastTickUnix.Store(t.Unix())
	s.lastPrice.Store(math.Float64bits(price))
}

func (s *State) LastTick() time.Time {
	u := s.lastTickUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) LastPrice() float64 { return math.Float64frombits(s.lastPrice.Load()) }

func (s *State) SetOpenPositions(n int) { s.openPos.Store(int64(n)) }
func (s *State) OpenPositions() int     { return int(s.openPos.Load()) }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
