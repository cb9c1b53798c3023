package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/AnotherRiz/BitX-Sessions/internal/app"
	"github.com/AnotherRiz/BitX-Sessions/internal/bridge"
	"github.com/AnotherRiz/BitX-Sessions/internal/config"
	"github.com/AnotherRiz/BitX-Sessions/internal/logging"
	"github.com/AnotherRiz/BitX-Sessions/internal/redis"
	"github.com/AnotherRiz/BitX-Sessions/internal/server"
	"github.com/AnotherRiz/BitX-Sessions/internal/store"
	"github.com/AnotherRiz/BitX-Sessions/internal/transfer"
	"github.com/AnotherRiz/BitX-Sessions/internal/version"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, hub *bridge.Hub, redisClient *goredis.Client) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		hub.Stop()

		if err := redisClient.Close(); err != nil {
			slog.Error("Failed to close Redis client", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Version)

	redisClient := setupRedis(context.Background(), cfg)

	repo := redis.NewSnapshotRepo(redisClient)
	hub := bridge.NewHub()

	svc := app.NewService(store.New(), repo, hub, clock)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	snap, err := svc.Initialize(initCtx)
	cancel()
	if err != nil {
		slog.Error("Failed to load persisted sessions", "error", err)
		os.Exit(1)
	}
	slog.Info("Sessions loaded", "sessions", len(snap.Sessions), "domains", len(snap.Active))

	// Pass nil explicitly to avoid a typed-nil interface when no relay is
	// configured.
	var srv *server.Server
	if cfg.TransferBaseURL != "" {
		relay := transfer.NewClient(cfg.TransferBaseURL, time.Duration(cfg.TransferTimeout)*time.Second, clock)
		srv = server.NewServer(cfg, svc, hub, relay, redisClient)
	} else {
		srv = server.NewServer(cfg, svc, hub, nil, redisClient)
	}

	done := runGracefulShutdown(srv, hub, redisClient)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
