package backend

import (
	"context"
	"fmt"
	"log/slog"

	"pocketbook/internal/amqp"
	"pocketbook/internal/persist"
	"pocketbook/internal/persist/file"
	"pocketbook/internal/persist/memory"
	"pocketbook/internal/services"
	"pocketbook/internal/storage"
	"pocketbook/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	// Category suggestions always come from the seed files.
	taxonomy := memory.NewFromFiles(dataDir)

	switch config.Type {
	case MemoryBackend:
		f.logger.Info("Initialized memory backend", "data_directory", dataDir)
		return &BackendResult{Bridge: taxonomy, Taxonomy: taxonomy}, nil
	case FileBackend:
		return f.createFileBackend(config, taxonomy)
	case SQLiteBackend:
		return f.createSQLiteBackend(config, taxonomy)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config, taxonomy)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createFileBackend(config Config, taxonomy persist.TaxonomyReader) (*BackendResult, error) {
	store, err := file.New(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	f.logger.Info("Initialized file backend", "data_directory", config.DataDirectory)

	return &BackendResult{Bridge: store, Taxonomy: taxonomy}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config, taxonomy persist.TaxonomyReader) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional
	var publisher services.ChangePublisher
	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			publisher = amqpClient
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	bridge := services.NewSyncingBridge(sqliteRepo, publisher)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Bridge:   bridge,
		Taxonomy: taxonomy,
		Tracker:  sqliteRepo,
		Cleanup:  bridge.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config, taxonomy persist.TaxonomyReader) (*BackendResult, error) {
	store, err := postgres.New(ctx, postgres.Config{URL: config.PostgresURL}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")

	return &BackendResult{
		Bridge:   store,
		Taxonomy: taxonomy,
		Tracker:  store,
		Cleanup:  store.Close,
	}, nil
}
