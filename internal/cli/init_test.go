package cli

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"budgetbuddy/internal/config"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/services"
)

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("debug")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level should be enabled")
	}
	logger = SetupLogger("nonsense")
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("unknown level should fall back to info")
	}
}

func TestOpenServiceSeedsDefaultAccount(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		DataBackend:        config.BackendMemory,
		EventsBackend:      config.EventsNone,
		CacheSize:          4,
		CacheTTL:           time.Minute,
		SeedDefaultAccount: true,
		LogLevel:           "info",
	}

	svc, err := OpenService(ctx, cfg, log.Discard())
	if err != nil {
		t.Fatalf("OpenService() error = %v", err)
	}
	defer svc.Close()

	accounts, err := svc.RefreshAccounts(ctx)
	if err != nil {
		t.Fatalf("RefreshAccounts() error = %v", err)
	}
	if len(accounts) != 1 || accounts[0].Name != services.DefaultAccountName {
		t.Errorf("expected the seeded default account, got %+v", accounts)
	}
}

func TestOpenServiceRejectsUnknownBackend(t *testing.T) {
	cfg := &config.Config{DataBackend: "sheets", EventsBackend: config.EventsNone}
	if _, err := OpenService(context.Background(), cfg, log.Discard()); err == nil {
		t.Error("OpenService() should fail for an unknown data backend")
	}
}
