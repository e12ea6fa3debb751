package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_bot/internal/modules/health/service"
)

func TestReadyzFollowsState(t *testing.T) {
	state := service.NewState()
	mux := NewMux(state, service.NewMetrics())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	state.SetReady(true)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthzReportsFeed(t *testing.T) {
	state := service.NewState()
	state.SetWSConnected(true)
	state.TouchTick(time.Unix(1700000000, 0), 50123.5)
	state.SetOpenPositions(2)

	rec := httptest.NewRecorder()
	NewMux(state, service.NewMetrics()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["wsConnected"])
	assert.Equal(t, 50123.5, body["lastPrice"])
	assert.Equal(t, float64(1700000000), body["lastTickUnix"])
	assert.Equal(t, float64(2), body["openPositions"])
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := service.NewMetrics()
	metrics.FeedReconnect()
	metrics.Signal("placed")

	rec := httptest.NewRecorder()
	NewMux(service.NewState(), metrics).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "feed_reconnects_total 1")
	assert.Contains(t, rec.Body.String(), `signals_processed_total{outcome="placed"} 1`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *service.Metrics
	assert.NotPanics(t, func() {
		m.FeedReconnect()
		m.ForcedClose("trailing", "long")
		m.GatewayError("create_order")
	})
}
