package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/cart-session/internal/config"
	healthgrpc "github.com/fjod/go_cart/cart-session/internal/grpc"
	h "github.com/fjod/go_cart/cart-session/internal/http"
	"github.com/fjod/go_cart/cart-session/internal/logger"
	"github.com/fjod/go_cart/cart-session/internal/metrics"
	"github.com/fjod/go_cart/cart-session/internal/notify"
	"github.com/fjod/go_cart/cart-session/internal/poller"
	"github.com/fjod/go_cart/cart-session/internal/repository"
	"github.com/fjod/go_cart/cart-session/internal/service"
	"github.com/fjod/go_cart/cart-session/internal/storefront"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const healthRefreshInterval = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New("cart-session", cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Error("cart-session stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := logger.InitTracing()
	defer shutdownTracing(context.Background())

	m := metrics.New()

	store, err := storefront.NewClient(cfg.StorefrontURL, cfg.StorefrontTimeout, storefront.WithMetrics(m))
	if err != nil {
		return err
	}
	log.Info("storefront client ready", slog.String("url", cfg.StorefrontURL))

	checks := map[string]healthgrpc.Pinger{}
	provider, closeSlots, err := openSlots(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeSlots()
	log.Info("cart slots ready", slog.String("backend", cfg.SlotBackend))

	notifiers := notify.Multi{notify.NewLogNotifier(log)}
	if cfg.KafkaEnabled() {
		kn := notify.NewKafkaNotifier(cfg.NoticeTopic, cfg.KafkaBrokers...)
		defer kn.Close()
		notifiers = append(notifiers, kn)
	}

	sessions := service.NewSessions(provider, service.Deps{
		Catalog:  store,
		Stock:    store,
		Notifier: notifiers,
		Metrics:  m,
		Logger:   log,
	}, service.SessionsConfig{
		IdleTTL:         cfg.IdleTTL,
		CleanupInterval: cfg.CleanupInterval,
	})
	defer sessions.Close()

	if cfg.KafkaEnabled() {
		p := poller.NewPoller(sessions, log, cfg.CheckoutTopic, cfg.ConsumerGroup, cfg.KafkaBrokers...)
		defer p.Close()
		go p.Run(ctx)
		log.Info("checkout poller started", slog.String("topic", cfg.CheckoutTopic))
	}

	cartHandler := h.NewCartHandler(sessions, cfg.RequestTimeout)
	router := h.NewRouter(cartHandler, m.Handler(), log, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "cart-session"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	healthSrv := healthgrpc.NewHealthServer(checks)
	healthSrv.Refresh(ctx)
	go refreshHealth(ctx, healthSrv)

	errCh := make(chan error, 2)
	go func() {
		log.Info("cart-session listening", slog.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		log.Info("health server listening", slog.String("port", cfg.GRPCPort))
		if err := healthSrv.Serve(cfg.GRPCPort); err != nil {
			errCh <- fmt.Errorf("grpc health server: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	log.Info("shutting down cart-session...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	healthSrv.GracefulStop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Join(serveErr, fmt.Errorf("server forced to shutdown: %w", err))
	}

	log.Info("cart-session stopped")
	return serveErr
}

// openSlots builds the configured slot provider and registers its health check.
func openSlots(ctx context.Context, cfg *config.Config, checks map[string]healthgrpc.Pinger) (repository.SlotProvider, func(), error) {
	switch cfg.SlotBackend {
	case config.SlotFile:
		p, err := repository.NewFileProvider(cfg.SlotDir)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {}, nil

	case config.SlotRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return repository.NewRedisProvider(client, cfg.SlotTTL), func() { client.Close() }, nil

	case config.SlotMongo:
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		p := repository.NewMongoProvider(db)
		if err := p.CreateIndexes(ctx, cfg.SlotTTL); err != nil {
			db.Client().Disconnect(context.Background())
			return nil, nil, err
		}
		checks["mongo"] = func(ctx context.Context) error { return db.Client().Ping(ctx, nil) }
		return p, func() { db.Client().Disconnect(context.Background()) }, nil

	default:
		return repository.NewMemoryProvider(), func() {}, nil
	}
}

func refreshHealth(ctx context.Context, srv *healthgrpc.HealthServer) {
	ticker := time.NewTicker(healthRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.Refresh(ctx)
		}
	}
}
