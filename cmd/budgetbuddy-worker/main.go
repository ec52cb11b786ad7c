package main

import (
	"context"
	"errors"
	"os"
	"time"

	"budgetbuddy/internal/backend"
	"budgetbuddy/internal/cache"
	"budgetbuddy/internal/cli"
	"budgetbuddy/internal/config"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/worker"
)

const (
	cleanupInterval = 10 * time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)
	logger.Info("Starting budgetbuddy-worker")

	if err := errors.Join(cfg.Validate(), cfg.ValidateJournal()); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)

	journal, err := factory.CreateJournal(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize journal", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Journal initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	sub, err := factory.CreateSubscriber(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize event subscriber", log.FieldError, err, "events_backend", cfg.EventsBackend)
		os.Exit(1)
	}

	jw := worker.NewJournalWorker(journal, logger)

	caches := cache.NewManager(logger)
	caches.Register(jw.Seen())
	caches.StartCleanup(cleanupInterval)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func() {
		caches.Stop()
		if err := sub.Close(); err != nil {
			logger.Warn("Failed to close subscriber", log.FieldError, err)
		}
	})

	logger.Info("Performing journal startup check...")
	if err := jw.StartupCheck(ctx); err != nil {
		// keep going; redeliveries of already journaled events may duplicate rows
		logger.Error("Journal startup check failed", log.FieldError, err)
	}

	go func() {
		if err := jw.Run(ctx, sub); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event consumption stopped", log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
