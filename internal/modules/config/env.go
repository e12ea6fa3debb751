package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// env -> поле. Переменные окружения сильнее yaml.
func applyEnv(c *Config, v *viper.Viper) {
	str := func(env string, dst *string) {
		_ = v.BindEnv(env)
		if s := strings.TrimSpace(v.GetString(env)); s != "" {
			*dst = s
		}
	}
	num := func(env string, dst *int) {
		_ = v.BindEnv(env)
		if v.IsSet(env) {
			*dst = v.GetInt(env)
		}
	}

	str("DELTA_PUBLIC_URL", &c.Delta.PublicURL)
	str("DELTA_PRIVATE_URL", &c.Delta.PrivateURL)
	str("DELTA_API_KEY", &c.Delta.APIKey)
	str("DELTA_SYMBOL", &c.Delta.Symbol)

	str("REDIS_HOST", &c.Redis.Host)
	num("REDIS_PORT", &c.Redis.Port)
	num("REDIS_DB", &c.Redis.DB)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("REDIS_KEY", &c.Redis.SignalKey)

	str("DATABASE_DSN", &c.DB)
	str("ORDER_STORE", &c.Store.Backend)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
	str("TELEGRAM_TOKEN", &c.Telegram.Token)
	str("TRAILING_POLICY", &c.Trailing.Policy)
	str("HEALTH_ADDR", &c.Health.Addr)
	str("JAEGER_HOST", &c.Tracing.Host)
	num("JAEGER_PORT", &c.Tracing.Port)

	_ = v.BindEnv("TELEGRAM_CHAT_ID")
	if v.IsSet("TELEGRAM_CHAT_ID") {
		c.Telegram.ChatID = v.GetInt64("TELEGRAM_CHAT_ID")
	}
	_ = v.BindEnv("MARKET_CACHE_TTL")
	if v.IsSet("MARKET_CACHE_TTL") {
		// в секундах, как в старом .env
		if secs := v.GetInt("MARKET_CACHE_TTL"); secs > 0 {
			c.Delta.MarketTTL = time.Duration(secs) * time.Second
		}
	}
}
