package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeConfig(t, "delta:\n  symbol: ETHUSD\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ETHUSD", cfg.Delta.Symbol)
	assert.Equal(t, int64(27), cfg.Delta.ProductID)
	assert.Equal(t, 3*time.Second, cfg.Feed.StaleAfter)
	assert.Equal(t, 5*time.Second, cfg.Positions.RefreshInterval)
	assert.Equal(t, 2*time.Second, cfg.Signals.SettleDelay)
	assert.Equal(t, PolicyPoints, cfg.Trailing.Policy)
	require.Len(t, cfg.Trailing.Percent.Levels, 4)
	assert.Nil(t, cfg.Trailing.Percent.Levels[3].StopOffset)
}

func TestLoadParsesDurations(t *testing.T) {
	path := writeConfig(t, "signals:\n  settle_delay: 250ms\n  poll_interval: 1s\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Signals.SettleDelay)
	assert.Equal(t, time.Second, cfg.Signals.PollInterval)
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "redis:\n  host: from-yaml\n  port: 1\n")
	t.Setenv("REDIS_HOST", "from-env")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("MARKET_CACHE_TTL", "60")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env:6380", cfg.RedisAddr())
	assert.Equal(t, time.Minute, cfg.Delta.MarketTTL)
	assert.Equal(t, int64(-100123), cfg.Telegram.ChatID)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Trailing.Policy = "fibonacci"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Store.Backend = StorePostgres
	assert.Error(t, cfg.Validate(), "postgres needs dsn")
	cfg.DB = "postgres://localhost/orders"
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Feed.StaleAfter = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
