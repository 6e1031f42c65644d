package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"nxt-tipbot/nxt"
	"nxt-tipbot/repositories"
	"nxt-tipbot/slack"
	"nxt-tipbot/tipping"
)

// Exit codes for the bot process.
const (
	exitOK       = 0
	exitRuntime  = 1
	exitConfig   = 2
	exitNoSecret = 3
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components and manages the process lifecycle,
// so deferred cleanup executes before the exit code is decided.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Master secret gate: without it no custodial account can be
	// derived, so the process refuses to start with guidance.
	if strings.TrimSpace(config.MasterSecret) == "" {
		candidate, err := nxt.GeneratePassphrase()
		if err != nil {
			return exitRuntime, fmt.Errorf("secret generation: %w", err)
		}
		fmt.Fprintf(os.Stderr,
			"MASTER_SECRET is not set. All account passphrases derive from it;\n"+
				"losing it means losing every custodial account.\n\n"+
				"Freshly generated candidate:\n\n    %s\n\n"+
				"Export MASTER_SECRET and restart.\n", candidate)
		return exitNoSecret, nil
	}

	// 3. Unit catalog
	registry, err := buildRegistry(config)
	if err != nil {
		return exitConfig, fmt.Errorf("unit configuration: %w", err)
	}

	// 4. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.BackupEnabled {
		go runBackups(ctx, log, db, config.BackupFilepath, config.BackupInterval)
	}

	// 6. Wiring: connector <-> orchestrator
	accounts := repositories.NewAccountRepository(db)
	ledger := nxt.NewClient(log, config.LedgerURL)
	retry := slack.NewRetryPolicy(config.ReconnectInterval, config.ReconnectBlocking)
	connector := slack.NewConnector(log, config.APIToken, retry)
	orchestrator := tipping.NewOrchestrator(log, registry, tipping.NewValidator(registry),
		accounts, ledger, connector, config.MasterSecret)
	connector.Bind(orchestrator)

	// 7. Session loop
	log.Info("Starting session connector", "units", len(registry.All()), "ledger", config.LedgerURL)
	if err := connector.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return exitRuntime, err
	}

	log.Info("Program stopped cleanly")
	return exitOK, nil
}

// runBackups writes a full badger backup on every tick. Overwrites the
// previous file; the store is small (one record per account).
func runBackups(ctx context.Context, log *slog.Logger, db *badger.DB, path string, interval time.Duration) {
	if path == "" {
		log.Warn("Backups enabled but BACKUP_FILEPATH is empty, skipping")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		file, err := os.Create(path)
		if err != nil {
			log.Error("Backup file creation failed", "path", path, "error", err)
			continue
		}
		if _, err := db.Backup(file, 0); err != nil {
			log.Error("Backup failed", "path", path, "error", err)
		}
		if err := file.Close(); err != nil {
			log.Error("Backup close failed", "path", path, "error", err)
		}
	}
}
