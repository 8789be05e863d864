// Package storage keeps ledger slots in SQLite and tracks which slot versions
// have been mirrored by the sync worker.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pocketbook/internal/persist"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between the server's goroutines.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load implements persist.Bridge
func (r *SQLiteRepository) Load(ctx context.Context, key string) (string, bool, error) {
	slot, err := r.queries.GetSlot(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get slot %s: %w", key, err)
	}
	return slot.Payload, true, nil
}

// Save implements persist.Bridge
func (r *SQLiteRepository) Save(ctx context.Context, key, payload string) error {
	_, err := r.SaveVersioned(ctx, key, payload)
	return err
}

// SaveVersioned stores the payload and returns the slot's new version.
func (r *SQLiteRepository) SaveVersioned(ctx context.Context, key, payload string) (int64, error) {
	version, err := r.queries.UpsertSlot(ctx, UpsertSlotParams{
		Key:       key,
		Payload:   payload,
		UpdatedAt: r.now().UTC().Unix(),
	})
	if err != nil {
		return 0, fmt.Errorf("upsert slot %s: %w", key, err)
	}

	slog.DebugContext(ctx, "Slot saved to SQLite",
		"slot_key", key,
		"slot_version", version,
		"bytes", len(payload))
	return version, nil
}

// Version implements persist.Versioned. Unknown slots are at version 0.
func (r *SQLiteRepository) Version(ctx context.Context, key string) (int64, error) {
	v, err := r.queries.GetSlotVersion(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get slot version %s: %w", key, err)
	}
	return v, nil
}

// Slot implements persist.SyncTracker
func (r *SQLiteRepository) Slot(ctx context.Context, key string) (persist.Slot, error) {
	s, err := r.queries.GetSlot(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return persist.Slot{}, fmt.Errorf("%w: %s", persist.ErrSlotNotFound, key)
	}
	if err != nil {
		return persist.Slot{}, fmt.Errorf("get slot %s: %w", key, err)
	}
	return toSlot(s), nil
}

// PendingSync returns slots whose latest version has not been mirrored yet,
// least recently updated first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]persist.Slot, error) {
	rows, err := r.queries.GetPendingSyncSlots(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync slots: %w", err)
	}
	slots := make([]persist.Slot, len(rows))
	for i, s := range rows {
		slots[i] = toSlot(s)
	}
	return slots, nil
}

// MarkSynced records that version of key has been mirrored. Older versions
// never move the marker backwards.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, key string, version int64) error {
	n, err := r.queries.MarkSlotSynced(ctx, version, key)
	if err != nil {
		return fmt.Errorf("mark slot synced: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark slot synced: %w: %s", persist.ErrSlotNotFound, key)
	}

	slog.InfoContext(ctx, "Slot marked as synced", "slot_key", key, "slot_version", version)
	return nil
}

// MarkSyncError stores the last mirroring failure for key.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, key string, syncErr error) error {
	if err := r.queries.MarkSlotSyncError(ctx, syncErr.Error(), key); err != nil {
		return fmt.Errorf("mark slot sync error: %w", err)
	}

	slog.WarnContext(ctx, "Slot marked with sync error", "slot_key", key, "error", syncErr)
	return nil
}

func toSlot(s LedgerSlot) persist.Slot {
	return persist.Slot{
		Key:           s.Key,
		Payload:       s.Payload,
		Version:       s.Version,
		SyncedVersion: s.SyncedVersion,
		UpdatedAt:     time.Unix(s.UpdatedAt, 0).UTC(),
	}
}

var (
	_ persist.Versioned   = (*SQLiteRepository)(nil)
	_ persist.SyncTracker = (*SQLiteRepository)(nil)
)
