// Command budgetbuddy records and inspects ledger entries from the shell.
//
// Usage:
//
//	budgetbuddy <command> [flags]
//
// Run "budgetbuddy help" for the list of commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"budgetbuddy/internal/cli"
	"budgetbuddy/internal/log"
)

const commandTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	// command output goes to stdout, logs to stderr
	logger := cli.SetupLoggerOutput(os.Getenv("LOG_LEVEL"), os.Stderr)
	cfg := cli.LoadAndValidateConfig(logger)

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	svc, err := cli.OpenService(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err)
		os.Exit(1)
	}

	err = run(ctx, svc, os.Stdout, os.Args[1:])
	if cerr := svc.Close(); cerr != nil {
		logger.Warn("Failed to close ledger", log.FieldError, cerr)
	}
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
