package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics счётчики бота. Все методы безопасны на nil, чтобы не тащить их в тесты.
type Metrics struct {
	Registry *prometheus.Registry

	feedReconnects prometheus.Counter
	feedMessages   prometheus.Counter
	feedDropped    prometheus.Counter
	livePrice      prometheus.Gauge
	forcedCloses   *prometheus.CounterVec
	bracketUpdates prometheus.Counter
	signals        *prometheus.CounterVec
	gatewayErrors  *prometheus.CounterVec
	mirrorErrors   prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		feedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_reconnects_total",
			Help: "Watchdog forced resubscriptions of the price stream.",
		}),
		feedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_messages_total",
			Help: "Valid trade frames applied to the price cell.",
		}),
		feedDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_dropped_frames_total",
			Help: "Malformed or incomplete frames dropped.",
		}),
		livePrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "live_price",
			Help: "Last observed trade price.",
		}),
		forcedCloses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailing_forced_closes_total",
			Help: "Market IOC closes issued, by source and position side.",
		}, []string{"source", "side"}),
		bracketUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trailing_bracket_updates_total",
			Help: "Bracket stop updates pushed for partial booking.",
		}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signals_processed_total",
			Help: "Signals processed, by outcome.",
		}, []string{"outcome"}),
		gatewayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_errors_total",
			Help: "Exchange gateway call failures, by operation.",
		}, []string{"op"}),
		mirrorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_mirror_errors_total",
			Help: "Failed write-through of order records.",
		}),
	}
	m.Registry.MustRegister(
		m.feedReconnects, m.feedMessages, m.feedDropped, m.livePrice,
		m.forcedCloses, m.bracketUpdates, m.signals, m.gatewayErrors, m.mirrorErrors,
	)
	return m
}

func (m *Metrics) FeedReconnect() {
	if m != nil {
		m.feedReconnects.Inc()
	}
}

func (m *Metrics) FeedMessage(price float64) {
	if m != nil {
		m.feedMessages.Inc()
		m.livePrice.Set(price)
	}
}

func (m *Metrics) FeedDropped() {
	if m != nil {
		m.feedDropped.Inc()
	}
}

func (m *Metrics) ForcedClose(source, side string) {
	if m != nil {
		m.forcedCloses.WithLabelValues(source, side).Inc()
	}
}

func (m *Metrics) BracketUpdate() {
	if m != nil {
		m.bracketUpdates.Inc()
	}
}

func (m *Metrics) Signal(outcome string) {
	if m != nil {
		m.signals.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) GatewayError(op string) {
	if m != nil {
		m.gatewayErrors.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) MirrorError() {
	if m != nil {
		m.mirrorErrors.Inc()
	}
}
