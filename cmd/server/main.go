package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/partnerdesk/partnerdesk/internal/auth"
	"github.com/partnerdesk/partnerdesk/internal/config"
	"github.com/partnerdesk/partnerdesk/internal/datastore"
	"github.com/partnerdesk/partnerdesk/internal/event"
	"github.com/partnerdesk/partnerdesk/internal/member"
	"github.com/partnerdesk/partnerdesk/internal/repository"
	"github.com/partnerdesk/partnerdesk/internal/service"
	httpTransport "github.com/partnerdesk/partnerdesk/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("application error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("connecting to datastore")
	store, err := datastore.Open(ctx, cfg.DatabaseURL, datastore.AccessTrusted)
	if err != nil {
		return fmt.Errorf("open datastore: %w", err)
	}
	defer store.Close()
	logger.Info("datastore connected")

	partnerRepo, err := repository.NewPartnerRepository(ctx, store)
	if err != nil {
		return fmt.Errorf("partner repository: %w", err)
	}
	orderRepo, err := repository.NewPurchaseOrderRepository(ctx, store)
	if err != nil {
		return fmt.Errorf("order repository: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Member lookups degrade to direct calls when the cache is down.
		logger.Warn("redis unavailable, member cache disabled", "error", err)
	}

	members := member.NewCachedClient(
		member.NewHTTPClient(cfg.MembershipBaseURL, nil),
		rdb,
		cfg.MemberCacheTTL,
		logger,
	)

	var publisher event.Publisher
	if cfg.IsDevelopment() {
		publisher = event.NewLoggingPublisher(logger)
	} else {
		// TODO: real message broker once the platform topic exists
		publisher = event.NewLoggingPublisher(logger)
	}
	defer publisher.Close()

	partnerService := service.NewPartnerService(partnerRepo, members, publisher)
	orderService := service.NewPurchaseOrderService(orderRepo, partnerRepo, publisher)

	jwtManager := auth.NewJWTManager(cfg.JWTSecretKey, cfg.JWTIssuer)

	server := httpTransport.NewServer(cfg, logger, partnerService, orderService, jwtManager)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errChan:
		logger.Error("server error", "error", err)
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	cancel()

	logger.Info("shutdown complete")
	return nil
}
