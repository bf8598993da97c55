package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders/internal/config"
	"github.com/ariefcatur/go-storefront-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/postgres"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logx.New(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()
	if os.Getenv("MIGRATE_ON_START") == "true" {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("migrate")
		}
	}
	gdb, err := catalog.Open(db)
	if err != nil {
		log.Fatal().Err(err).Msg("gorm open")
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, log)
	prod.Start()

	// Service & handlers
	svc := &orders.Service{
		Store: &orders.Repo{DB: db},
		Log:   log.With().Str("component", "orders").Logger(),
	}
	router := httpx.NewRouter(log)
	oh := &httpx.OrdersHandler{
		Service:  svc,
		Producer: prod,
		Redis:    rdb,
		Limiter:  httpx.NewRateLimiter(cfg.CheckoutRate, cfg.CheckoutBurst, 3*time.Minute),
		Name:     cfg.ServiceName,
	}
	oh.Register(router)
	ch := &httpx.CatalogHandler{Repo: &catalog.Repo{DB: gdb}}
	ch.Register(router)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exit")
	}
	prod.Close() // flush queued events once no handler can publish
}
