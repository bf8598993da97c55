package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-storefront-orders/internal/config"
	"github.com/ariefcatur/go-storefront-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/postgres"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	name := cfg.ServiceName + "-inventory"
	log := logx.New(name, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockLow, 1024, log)
	prod.Start()
	defer prod.Close()

	svc := &inventory.Service{
		Stock:       &orders.Repo{DB: db},
		Dedup:       &redisx.Deduper{Redis: rdb, Service: "inventory"},
		Producer:    prod,
		Threshold:   cfg.LowStockThreshold,
		ServiceName: name,
		Log:         log,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.InventoryGroup, orders.TopicOrderPlaced, cfg.InventoryWorkers, log)
	log.Info().
		Str("group", cfg.InventoryGroup).
		Str("topic", orders.TopicOrderPlaced).
		Int("workers", cfg.InventoryWorkers).
		Msg("inventory consumer started")
	if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
		log.Error().Err(err).Msg("consumer exit")
	}
	log.Info().Msg("shutting down consumer...")
}
