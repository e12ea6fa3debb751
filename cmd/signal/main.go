// Command signal кладёт сигнал в redis-ключ, который опрашивает бот. Для ручной проверки и отладки.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"trade_bot/internal/models"
	"trade_bot/internal/modules/config"
	"trade_bot/internal/modules/signal_bus/service"
)

func main() {
	var (
		text   = flag.String("text", "", `текст сигнала: "buy", "short", "take profit"`)
		price  = flag.Float64("price", 0, "опорная цена, 0 = взять цену стрима")
		supply = flag.Float64("supply", 0, "supply_zone.min, 0 = нет")
		demand = flag.Float64("demand", 0, "demand_zone.min, 0 = нет")
		show   = flag.Bool("show", false, "только показать текущий сигнал")
	)
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()
	bus := service.NewRedisBus(rdb, cfg.Redis.SignalKey)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if *show {
		sig, err := bus.Fetch(ctx)
		if err != nil {
			log.Fatal(err)
		}
		if sig == nil {
			log.Println("no signal")
			return
		}
		log.Printf("text=%q intent=%s zones=%v", sig.Text, sig.Intent(), sig.HasZones())
		return
	}

	if *text == "" {
		log.Fatal("-text is required")
	}
	sig := models.Signal{
		Text:          *text,
		Price:         optional(*price),
		SupplyZoneMin: optional(*supply),
		DemandZoneMin: optional(*demand),
	}
	if err := bus.Publish(ctx, sig); err != nil {
		log.Fatal(err)
	}
	log.Printf("published %q (intent=%s) to %s", sig.Text, sig.Intent(), cfg.RedisAddr())
}

func optional(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}
