package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDir         = "configs"
	defaultConfigFile = "values_local.yaml"
)

const (
	PolicyPoints  = "points"
	PolicyPercent = "percent"

	StoreRedis    = "redis"
	StoreBadger   = "badger"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config ...
type Config struct {
	Service struct {
		Name string `yaml:"name"`
	} `yaml:"service"`

	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`

	Delta struct {
		PublicURL  string        `yaml:"public_url"`
		PrivateURL string        `yaml:"private_url"` // прокси, который подписывает запросы
		APIKey     string        `yaml:"api_key"`
		Timeout    time.Duration `yaml:"timeout"`
		RateLimit  float64       `yaml:"rate_limit"` // запросов в секунду
		RateBurst  int           `yaml:"rate_burst"`
		MarketTTL  time.Duration `yaml:"market_cache_ttl"`
		Symbol     string        `yaml:"symbol"`
		ProductID  int64         `yaml:"product_id"`
	} `yaml:"delta"`

	Feed struct {
		URL              string        `yaml:"url"`
		Stream           string        `yaml:"stream"`
		StaleAfter       time.Duration `yaml:"stale_after"`
		WatchdogInterval time.Duration `yaml:"watchdog_interval"`
		SeedFromREST     bool          `yaml:"seed_from_rest"`
		SeedSymbol       string        `yaml:"seed_symbol"`
	} `yaml:"feed"`

	Positions struct {
		RefreshInterval time.Duration `yaml:"refresh_interval"`
		OrderTTL        time.Duration `yaml:"order_ttl"` // сколько держим локально закрытые ордера
	} `yaml:"positions"`

	Trailing TrailingConfig `yaml:"trailing"`

	Signals struct {
		PollInterval  time.Duration `yaml:"poll_interval"`
		SettleDelay   time.Duration `yaml:"settle_delay"`
		ConfirmSettle bool          `yaml:"confirm_settle"`
		EntryOffset   float64       `yaml:"entry_offset"`
		StopOffset    float64       `yaml:"stop_offset"`
		TargetOffset  float64       `yaml:"target_offset"`
		OrderSize     float64       `yaml:"order_size"`
	} `yaml:"signals"`

	Redis struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		DB        int    `yaml:"db"`
		Password  string `yaml:"password"`
		SignalKey string `yaml:"signal_key"`
	} `yaml:"redis"`

	Store struct {
		Backend   string `yaml:"backend"`
		BadgerDir string `yaml:"badger_dir"`
	} `yaml:"store"`

	DB string `yaml:"db_dsn"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Tracing struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"tracing"`

	Health struct {
		Addr string `yaml:"addr"`
	} `yaml:"health"`
}

type TrailingConfig struct {
	Policy       string        `yaml:"policy"` // points | percent
	Interval     time.Duration `yaml:"interval"`
	PriceWait    time.Duration `yaml:"price_wait"`
	LockTrigger  float64       `yaml:"lock_trigger"`  // пунктов excursion до lock_50
	LockFraction float64       `yaml:"lock_fraction"` // доля excursion, которую фиксируем
	FixedOffset  float64       `yaml:"fixed_offset"`
	Percent      PercentConfig `yaml:"percent"`
}

// PercentConfig ступени трейлинга в долях от entry.
type PercentConfig struct {
	StartProfitPct   float64        `yaml:"start_profit_pct"`
	FixedStopLossPct float64        `yaml:"fixed_stop_loss_pct"`
	Levels           []PercentLevel `yaml:"levels"`
}

type PercentLevel struct {
	MinProfitPct float64  `yaml:"min_profit_pct"`
	StopOffset   *float64 `yaml:"stop_offset"` // nil -> partial booking
	BookFraction float64  `yaml:"book_fraction"`
}

func NewConfig() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = defaultConfigFile
	}
	return Load(filepath.Join(configDir, configFileName))
}

// Load читает yaml поверх дефолтов, затем накладывает env.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config file")
	}
	defer func() {
		_ = file.Close()
	}()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, errors.Wrap(err, "decode config file")
	}

	applyEnv(config, viper.New())

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func Default() *Config {
	c := &Config{}
	c.Service.Name = "trade_bot"
	c.Log.Level = "info"

	c.Delta.PublicURL = "https://api.india.delta.exchange"
	c.Delta.PrivateURL = "https://api.india.delta.exchange"
	c.Delta.Timeout = 10 * time.Second
	c.Delta.RateLimit = 10
	c.Delta.RateBurst = 20
	c.Delta.MarketTTL = 300 * time.Second
	c.Delta.Symbol = "BTCUSD"
	c.Delta.ProductID = 27

	c.Feed.URL = "wss://fstream.binance.com/ws"
	c.Feed.Stream = "btcusdt@aggTrade"
	c.Feed.StaleAfter = 3 * time.Second
	c.Feed.WatchdogInterval = time.Second
	c.Feed.SeedFromREST = true
	c.Feed.SeedSymbol = "BTCUSDT"

	c.Positions.RefreshInterval = 5 * time.Second
	c.Positions.OrderTTL = 60 * time.Second

	c.Trailing = DefaultTrailing()

	c.Signals.PollInterval = 5 * time.Second
	c.Signals.SettleDelay = 2 * time.Second
	c.Signals.EntryOffset = 50
	c.Signals.StopOffset = 500
	c.Signals.TargetOffset = 3000
	c.Signals.OrderSize = 1

	c.Redis.Host = "localhost"
	c.Redis.Port = 6379
	c.Redis.SignalKey = "signal"

	c.Store.Backend = StoreRedis
	c.Store.BadgerDir = "data/orders"

	c.Tracing.Port = 6831
	c.Health.Addr = ":8080"
	return c
}

func DefaultTrailing() TrailingConfig {
	off := func(v float64) *float64 { return &v }
	return TrailingConfig{
		Policy:       PolicyPoints,
		Interval:     time.Second,
		PriceWait:    30 * time.Second,
		LockTrigger:  1000,
		LockFraction: 0.5,
		FixedOffset:  500,
		Percent: PercentConfig{
			StartProfitPct:   0.005,
			FixedStopLossPct: 0.005,
			Levels: []PercentLevel{
				{MinProfitPct: 0.005, StopOffset: off(0.001), BookFraction: 1},
				{MinProfitPct: 0.01, StopOffset: off(0.006), BookFraction: 1},
				{MinProfitPct: 0.015, StopOffset: off(0.012), BookFraction: 1},
				{MinProfitPct: 0.02, StopOffset: nil, BookFraction: 0.9},
			},
		},
	}
}

func (c *Config) Validate() error {
	positive := map[string]time.Duration{
		"feed.stale_after":           c.Feed.StaleAfter,
		"feed.watchdog_interval":     c.Feed.WatchdogInterval,
		"positions.refresh_interval": c.Positions.RefreshInterval,
		"trailing.interval":          c.Trailing.Interval,
		"signals.poll_interval":      c.Signals.PollInterval,
	}
	for name, d := range positive {
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive, got %s", name, d)
		}
	}
	if c.Signals.SettleDelay < 0 {
		return fmt.Errorf("config: signals.settle_delay must not be negative")
	}
	if strings.TrimSpace(c.Delta.Symbol) == "" {
		return fmt.Errorf("config: delta.symbol is required")
	}
	if c.Signals.OrderSize <= 0 {
		return fmt.Errorf("config: signals.order_size must be positive")
	}
	switch c.Trailing.Policy {
	case PolicyPoints, PolicyPercent:
	default:
		return fmt.Errorf("config: unknown trailing.policy %q", c.Trailing.Policy)
	}
	switch c.Store.Backend {
	case StoreRedis, StoreBadger, StoreMemory:
	case StorePostgres:
		if c.DB == "" {
			return fmt.Errorf("config: db_dsn is required for postgres store")
		}
	default:
		return fmt.Errorf("config: unknown store.backend %q", c.Store.Backend)
	}
	return nil
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
