package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type LedgerSlot struct {
	Key           string
	Payload       string
	Version       int64
	SyncedVersion int64
	SyncError     sql.NullString
	CreatedAt     int64
	UpdatedAt     int64
}

const getSlot = `SELECT key, payload, version, synced_version, sync_error, created_at, updated_at
FROM ledger_slots
WHERE key = ?`

func (q *Queries) GetSlot(ctx context.Context, key string) (LedgerSlot, error) {
	row := q.db.QueryRowContext(ctx, getSlot, key)
	var i LedgerSlot
	err := row.Scan(&i.Key, &i.Payload, &i.Version, &i.SyncedVersion, &i.SyncError, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const upsertSlot = `INSERT INTO ledger_slots (key, payload, version, synced_version, created_at, updated_at)
VALUES (?1, ?2, 1, 0, ?3, ?3)
ON CONFLICT (key) DO UPDATE SET
    payload    = excluded.payload,
    version    = ledger_slots.version + 1,
    updated_at = excluded.updated_at
RETURNING version`

type UpsertSlotParams struct {
	Key       string
	Payload   string
	UpdatedAt int64
}

func (q *Queries) UpsertSlot(ctx context.Context, arg UpsertSlotParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, upsertSlot, arg.Key, arg.Payload, arg.UpdatedAt)
	var version int64
	err := row.Scan(&version)
	return version, err
}

const getSlotVersion = `SELECT version FROM ledger_slots WHERE key = ?`

func (q *Queries) GetSlotVersion(ctx context.Context, key string) (int64, error) {
	row := q.db.QueryRowContext(ctx, getSlotVersion, key)
	var version int64
	err := row.Scan(&version)
	return version, err
}

const getPendingSyncSlots = `SELECT key, payload, version, synced_version, sync_error, created_at, updated_at
FROM ledger_slots
WHERE version > synced_version
ORDER BY updated_at ASC
LIMIT ?`

func (q *Queries) GetPendingSyncSlots(ctx context.Context, limit int64) ([]LedgerSlot, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncSlots, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerSlot
	for rows.Next() {
		var i LedgerSlot
		if err := rows.Scan(&i.Key, &i.Payload, &i.Version, &i.SyncedVersion, &i.SyncError, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markSlotSynced = `UPDATE ledger_slots
SET synced_version = MAX(synced_version, ?1), sync_error = NULL
WHERE key = ?2`

func (q *Queries) MarkSlotSynced(ctx context.Context, version int64, key string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markSlotSynced, version, key)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markSlotSyncError = `UPDATE ledger_slots SET sync_error = ?1 WHERE key = ?2`

func (q *Queries) MarkSlotSyncError(ctx context.Context, msg string, key string) error {
	_, err := q.db.ExecContext(ctx, markSlotSyncError, msg, key)
	return err
}
