// Package postgres stores ledger slots in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pocketbook/internal/persist"
)

//go:embed 001_create_ledger_slots.sql
var migrationSQL string

// Config holds the PostgreSQL store configuration.
type Config struct {
	// URL is a postgres:// connection string or a key=value DSN.
	URL string

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int
}

// Store implements persist.Versioned and persist.SyncTracker on PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects, pings and migrates the database.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 5
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{pool: pool, logger: logger}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		"host", poolConfig.ConnConfig.Host,
		"database", poolConfig.ConnConfig.Database,
	)
	return s, nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Load(ctx context.Context, key string) (string, bool, error) {
	var payload string
	err := s.pool.QueryRow(ctx, `SELECT payload FROM ledger_slots WHERE key = $1`, key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying slot %s: %w", key, err)
	}
	return payload, true, nil
}

func (s *Store) Save(ctx context.Context, key, payload string) error {
	_, err := s.SaveVersioned(ctx, key, payload)
	return err
}

// SaveVersioned stores payload and returns the slot's new version.
func (s *Store) SaveVersioned(ctx context.Context, key, payload string) (int64, error) {
	const query = `
		INSERT INTO ledger_slots (key, payload)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET
			payload    = EXCLUDED.payload,
			version    = ledger_slots.version + 1,
			updated_at = NOW()
		RETURNING version`

	var version int64
	if err := s.pool.QueryRow(ctx, query, key, payload).Scan(&version); err != nil {
		return 0, fmt.Errorf("upserting slot %s: %w", key, err)
	}
	s.logger.Debug("slot saved", "slot_key", key, "slot_version", version)
	return version, nil
}

func (s *Store) Version(ctx context.Context, key string) (int64, error) {
	var version int64
	err := s.pool.QueryRow(ctx, `SELECT version FROM ledger_slots WHERE key = $1`, key).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying slot version %s: %w", key, err)
	}
	return version, nil
}

const slotColumns = `key, payload, version, synced_version, updated_at`

func scanSlot(row pgx.Row) (persist.Slot, error) {
	var slot persist.Slot
	err := row.Scan(&slot.Key, &slot.Payload, &slot.Version, &slot.SyncedVersion, &slot.UpdatedAt)
	return slot, err
}

func (s *Store) Slot(ctx context.Context, key string) (persist.Slot, error) {
	slot, err := scanSlot(s.pool.QueryRow(ctx, `SELECT `+slotColumns+` FROM ledger_slots WHERE key = $1`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return persist.Slot{}, fmt.Errorf("%w: %s", persist.ErrSlotNotFound, key)
	}
	if err != nil {
		return persist.Slot{}, fmt.Errorf("querying slot %s: %w", key, err)
	}
	return slot, nil
}

func (s *Store) PendingSync(ctx context.Context, limit int) ([]persist.Slot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+slotColumns+` FROM ledger_slots WHERE version > synced_version ORDER BY updated_at LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying pending slots: %w", err)
	}
	defer rows.Close()

	var slots []persist.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pending slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (s *Store) MarkSynced(ctx context.Context, key string, version int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ledger_slots SET synced_version = GREATEST(synced_version, $1), sync_error = NULL WHERE key = $2`,
		version, key)
	if err != nil {
		return fmt.Errorf("marking slot synced: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("marking slot synced: %w: %s", persist.ErrSlotNotFound, key)
	}
	return nil
}

var (
	_ persist.Versioned   = (*Store)(nil)
	_ persist.SyncTracker = (*Store)(nil)
)
