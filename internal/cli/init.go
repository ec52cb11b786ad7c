// Package cli provides common CLI initialization utilities shared by
// cmd/budgetbuddy, cmd/budgetbuddy-worker and cmd/oauth-init.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budgetbuddy/internal/backend"
	"budgetbuddy/internal/config"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/services"

	"github.com/joho/godotenv"
)

// SetupLogger builds the application logger at level and installs it as the
// slog default. An unknown level falls back to info.
func SetupLogger(level string) *log.Logger {
	return SetupLoggerOutput(level, os.Stdout)
}

// SetupLoggerOutput is SetupLogger writing to out.
func SetupLoggerOutput(level string, out io.Writer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = out
	if lvl, err := log.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenService builds the store and the publisher selected by cfg and wires
// them into a FinanceService, seeding the default account when configured.
// Closing the service closes the store and the publisher.
func OpenService(ctx context.Context, cfg *config.Config, logger *log.Logger) (*services.FinanceService, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := backend.NewFactory(logger)

	res, err := factory.CreateStore(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	pub, err := factory.CreatePublisher(ctx, bcfg)
	if err != nil {
		logger.WarnContext(ctx, "Event publisher unavailable, continuing without events", log.FieldError, err)
		pub = nil
	}

	svc := services.NewFinanceService(res.Store, pub, logger, services.Options{
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
	})

	if cfg.SeedDefaultAccount {
		if _, err := svc.SeedDefaultAccount(ctx); err != nil {
			svc.Close()
			return nil, fmt.Errorf("seed default account: %w", err)
		}
	}
	return svc, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
