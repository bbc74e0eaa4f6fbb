package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/config"
	"fintrack/internal/events"
	"fintrack/internal/storage"
)

// events-worker consumes transaction events from AMQP into the audit
// trail and periodically prunes entries past the retention window.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting events-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.ConsumeTransactionEvents(ctx, func(msg *events.TransactionEventMessage) error {
			return repo.RecordEvent(ctx, msg.TransactionID, msg.Source, msg.Timestamp)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.PruneInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				cutoff := time.Now().Add(-cfg.EventRetention)
				removed, err := repo.PruneEvents(ctx, cutoff)
				if err != nil {
					slog.ErrorContext(ctx, "Event pruning failed", "error", err)
					continue
				}
				if removed > 0 {
					slog.InfoContext(ctx, "Pruned old events",
						"removed", removed,
						"cutoff", cutoff.Format(time.RFC3339))
				}
			}
		}
	})

	logger.Info("Events-worker running",
		"queue", cfg.AMQPQueue,
		"retention", cfg.EventRetention,
		"prune_interval", cfg.PruneInterval)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Events-worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Events-worker stopped gracefully")
}
