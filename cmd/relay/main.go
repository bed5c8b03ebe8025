package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maydaypets/platform/internal/clock"
	"github.com/maydaypets/platform/internal/infra"
	"github.com/maydaypets/platform/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("relay failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("relay connected to postgres")

	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()

	poller := infra.NewRelayPoller(
		repository.NewPgEventLog(pool),
		producer,
		cfg.RelayInterval,
		cfg.RelayBatchSize,
		clock.Real(),
		logger,
	)
	logger.Info("relay starting", "poll_interval", cfg.RelayInterval, "batch_size", cfg.RelayBatchSize)

	ticker := time.NewTicker(cfg.RelayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("relay shutting down")
			return nil
		case <-ticker.C:
			if err := poller.Poll(ctx); err != nil {
				logger.Error("poll error", "error", err)
			}
		}
	}
}
