package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"pocketbook/internal/amqp"
	"pocketbook/internal/cache"
	"pocketbook/internal/config"
	applog "pocketbook/internal/log"
	"pocketbook/internal/persist"
	"pocketbook/internal/services"
	"pocketbook/internal/sheets"
	gsheet "pocketbook/internal/sheets/google"
	sheetsmem "pocketbook/internal/sheets/memory"
	"pocketbook/internal/storage"
	"pocketbook/internal/storage/postgres"
	"pocketbook/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		applog.New(applog.DefaultConfig()).Error("Failed to load configuration", applog.FieldError, err)
		os.Exit(1)
	}

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: applog.ComponentWorker,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)

	logger.Info("Starting pocketbook-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker, closeTracker, err := openTracker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeTracker()

	writer, err := openWriter(ctx, cfg, logger)
	if err != nil {
		return err
	}

	processor := services.NewSyncProcessor(tracker, writer, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
	})
	syncWorker := worker.NewSyncWorker(processor, cfg.SyncBatchSize)

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		// keep running, the sweep retries
		logger.Error("Failed startup sync check", applog.FieldError, err)
	}

	caches := cache.NewManager()
	caches.Register(syncWorker.Cache())

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("initialize AMQP client: %w", err)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			err := amqpClient.ConsumeLedgerChanges(gctx, syncWorker.HandleLedgerChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled, relying on the pending sweep only")
	}

	if err := processor.Start(gctx); err != nil {
		return err
	}
	g.Go(func() error {
		return caches.Run(gctx, 10*time.Minute)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down worker...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		caches.Stop()
		return processor.Stop(shutdownCtx)
	})

	return g.Wait()
}

// openTracker opens the store the web process saves slots to.
func openTracker(ctx context.Context, cfg *config.Config, logger *applog.Logger) (persist.SyncTracker, func(), error) {
	switch cfg.DataBackend {
	case config.BackendSQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		logger.Info("Reading slots from SQLite", "path", cfg.SQLiteDBPath)
		return repo, func() { _ = repo.Close() }, nil
	case config.BackendPostgres:
		store, err := postgres.New(ctx, postgres.Config{URL: cfg.PostgresURL}, logger.WithComponent(applog.ComponentStorage).Slog())
		if err != nil {
			return nil, nil, fmt.Errorf("initialize Postgres store: %w", err)
		}
		logger.Info("Reading slots from Postgres")
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("worker needs the sqlite or postgres backend, got %q", cfg.DataBackend)
	}
}

// openWriter returns the Sheets mirror, or an in-memory one when no
// spreadsheet is configured.
func openWriter(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.RecordsWriter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
		return sheetsmem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		RetryAttempts:      cfg.GoogleRetryAttempts,
		RetryDelay:         cfg.GoogleRetryDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
