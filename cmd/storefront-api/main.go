package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/cart-session/internal/catalog"
	healthgrpc "github.com/fjod/go_cart/cart-session/internal/grpc"
	h "github.com/fjod/go_cart/cart-session/internal/http"
	"github.com/fjod/go_cart/cart-session/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	log := logger.New("storefront-api", getEnv("LOG_LEVEL", "info"))

	shutdownTracing := logger.InitTracing()
	defer shutdownTracing(context.Background())

	dbPath := getEnv("DB_PATH", "./storefront.db")
	httpPort := getEnv("HTTP_PORT", "3333")
	grpcPort := getEnv("GRPC_PORT", "50054")

	repo, err := catalog.NewRepository(dbPath)
	if err != nil {
		log.Error("failed to open storefront database", slog.Any("error", err))
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.RunMigrations(); err != nil {
		log.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("migrations completed successfully", slog.String("db", dbPath))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.RequestIDMiddleware)
	r.Use(h.LoggingMiddleware(log))
	r.Use(middleware.Timeout(10 * time.Second))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	catalog.NewHandler(repo).Routes(r)

	srv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      otelhttp.NewHandler(r, "storefront-api"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	healthSrv := healthgrpc.NewHealthServer(map[string]healthgrpc.Pinger{"sqlite": repo.Ping})
	healthSrv.Refresh(context.Background())

	go func() {
		log.Info("storefront-api listening", slog.String("port", httpPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()
	go func() {
		if err := healthSrv.Serve(grpcPort); err != nil {
			log.Error("health server error", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down storefront-api...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	healthSrv.GracefulStop()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", slog.Any("error", err))
	}
	log.Info("storefront-api stopped")
}
