package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kitchen-orders/internal/cache"
	"kitchen-orders/internal/config"
	"kitchen-orders/internal/database"
	"kitchen-orders/internal/events"
	"kitchen-orders/internal/handler"
	"kitchen-orders/internal/repository"
	"kitchen-orders/internal/router"
	"kitchen-orders/internal/service"
	"kitchen-orders/internal/stream"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, cfg.WorkerID)
	logger.Info().Msg("starting kitchen orders API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	store := database.NewStore(pool, cfg.Database.Timeout(), logger)

	orderRepo := repository.NewOrderRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	categoryRepo := repository.NewCategoryRepository(pool, logger)
	financeRepo := repository.NewFinanceRepository(pool, logger)
	clientRepo := repository.NewClientRepository(pool, logger)

	var redisClient *redis.Client
	if cfg.Cache.Enabled || cfg.Events.Backend == config.EventsBackendRedis {
		redisClient = cache.NewRedisClient(cfg.Redis)
		defer redisClient.Close()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			// The cache fails open and the relay retries, so startup goes on.
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable at startup")
		}
		pingCancel()
	}

	cacheStore := cache.NewNopStore()
	if cfg.Cache.Enabled {
		cacheStore = cache.NewRedisStore(redisClient, logger)
	} else {
		logger.Info().Msg("read-through cache disabled")
	}

	broker, err := newBroker(cfg, redisClient, logger)
	if err != nil {
		return err
	}
	defer broker.Close()

	registry := stream.NewRegistry(cfg.Events.ClientBuffer, logger)
	publisher := events.NewPublisher(broker, cfg.Events.Channel, logger)
	relay := events.NewRelay(broker, cfg.Events.Channel, registry, logger)

	relayCtx, stopRelay := context.WithCancel(ctx)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(relayCtx)
	}()

	ttl := cfg.Cache.TTLDuration()
	location := cfg.Location()
	orderService := service.NewOrderService(store, orderRepo, productRepo, clientRepo, cacheStore, ttl, publisher, location, logger)
	productService := service.NewProductService(store, productRepo, categoryRepo, cacheStore, ttl, logger)
	categoryService := service.NewCategoryService(store, categoryRepo, cacheStore, ttl, cfg.Cache.Invalidation, logger)
	financeService := service.NewFinanceService(financeRepo, cacheStore, ttl, location, logger)
	clientService := service.NewClientService(clientRepo, cacheStore, ttl, logger)

	mux := router.New(router.Handlers{
		Orders:     handler.NewOrderHandler(orderService, logger),
		Products:   handler.NewProductHandler(productService, logger),
		Categories: handler.NewCategoryHandler(categoryService, logger),
		Finance:    handler.NewFinanceHandler(financeService, logger),
		Clients:    handler.NewClientHandler(clientService, logger),
		Events:     handler.NewEventsHandler(registry, cfg.Events.KeepAliveInterval(), logger),
	}, cfg.Auth.APIKey, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Str("events_backend", cfg.Events.Backend).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		stopRelay()
		<-relayDone
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Streams never finish on their own, so they are ended before the
		// server waits for in-flight requests.
		stopRelay()
		<-relayDone
		registry.Shutdown()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newBroker connects the configured event bus backend.
func newBroker(cfg *config.Config, redisClient *redis.Client, logger zerolog.Logger) (events.Broker, error) {
	switch cfg.Events.Backend {
	case config.EventsBackendRabbitMQ:
		broker, err := events.DialRabbitBroker(cfg.RabbitMQ.URL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		return broker, nil
	default:
		return events.NewRedisBroker(redisClient, cfg.Redis, logger), nil
	}
}
