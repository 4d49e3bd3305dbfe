package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"storefront-checkout/internal/cache"
	"storefront-checkout/internal/client"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/logger"
	"storefront-checkout/internal/messaging"
	"storefront-checkout/internal/metrics"
	"storefront-checkout/internal/repository"
	"storefront-checkout/internal/server"
	"storefront-checkout/internal/service"
	"storefront-checkout/internal/telemetry"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, &cfg.Telemetry, version)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}

	db, err := client.InitDBClient(&cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}

	var idempotency cache.IdempotencyStore
	rdb, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}
	if rdb != nil {
		idempotency = cache.NewRedisIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
	} else {
		log.Warn("REDIS_ADDR not set, checkout idempotency keys are ignored")
	}

	var orderEvents, reconciliationEvents messaging.Publisher = messaging.NopPublisher{}, messaging.NopPublisher{}
	var producers []*messaging.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		orderProducer := messaging.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		reconciliationProducer := messaging.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ReconciliationTopic)
		orderEvents, reconciliationEvents = orderProducer, reconciliationProducer
		producers = append(producers, orderProducer, reconciliationProducer)
	} else {
		log.Warn("KAFKA_BROKERS not set, order events are not published")
	}

	if !cfg.Braintree.Configured() {
		log.Warn("braintree credentials missing, checkout will report the gateway as unavailable")
	}
	gateway := client.NewBraintreeClient(&cfg.Braintree)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(reg)

	txr := repository.NewTransactor(db, repository.RetryPolicy{
		MaxAttempts: cfg.Database.TxMaxAttempts,
		Backoff:     cfg.Database.TxBackoff,
		Retryable:   repository.IsConnectionError,
	})
	orderRepo := repository.NewOrderRepository(db)
	addressRepo := repository.NewAddressRepository()
	productRepo := repository.NewProductRepository(db)

	checkoutService := service.NewCheckoutService(
		txr, gateway,
		orderRepo,
		addressRepo,
		productRepo,
		service.CheckoutOptions{
			Idempotency:          idempotency,
			OrderEvents:          orderEvents,
			ReconciliationEvents: reconciliationEvents,
			Metrics:              checkoutMetrics,
			Currency:             cfg.Checkout.Currency,
			PersistTimeout:       cfg.Checkout.PersistTimeout,
		},
		log,
	)
	orderService := service.NewOrderService(txr, orderRepo, log)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(cfg, checkoutService, orderService, reg, log)

	log.Info("starting HTTP server", zap.String("addr", serverAddr), zap.String("version", version))
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-sigChan:
		log.Info("signal received, starting graceful shutdown")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", zap.Error(err))
	}
	for _, p := range producers {
		if err := p.Close(); err != nil {
			log.Error("kafka producer close error", zap.Error(err))
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("tracer shutdown error", zap.Error(err))
	}
	return nil
}
