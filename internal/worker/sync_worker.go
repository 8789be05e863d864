// Package worker consumes ledger change messages and mirrors the changed
// slots to the spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pocketbook/internal/amqp"
	"pocketbook/internal/cache"
)

// Syncer mirrors one slot or sweeps the pending ones.
type Syncer interface {
	SyncSlot(ctx context.Context, key string, minVersion int64) (int64, error)
	ProcessPending(ctx context.Context) (int, error)
}

// SyncWorker handles ledger changed messages from AMQP.
type SyncWorker struct {
	syncer    Syncer
	mirrored  *cache.LRUCache[int64]
	batchSize int
}

func NewSyncWorker(syncer Syncer, batchSize int) *SyncWorker {
	return &SyncWorker{
		syncer:    syncer,
		mirrored:  cache.NewLRUCache[int64](64, time.Hour),
		batchSize: batchSize,
	}
}

// Cache exposes the mirrored-version cache so it can be swept.
func (w *SyncWorker) Cache() *cache.LRUCache[int64] {
	return w.mirrored
}

// HandleLedgerChanged mirrors the slot named in msg. Messages for versions
// that are already mirrored are acknowledged without touching the sheet.
func (w *SyncWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger changed message",
		"slot_key", msg.Key,
		"slot_version", msg.Version,
		"count", msg.Count)

	if v, ok := w.mirrored.Get(msg.Key); ok && v >= msg.Version {
		slog.DebugContext(ctx, "Skipping stale ledger changed message",
			"slot_key", msg.Key,
			"slot_version", msg.Version,
			"mirrored_version", v)
		return nil
	}

	version, err := w.syncer.SyncSlot(ctx, msg.Key, msg.Version)
	if err != nil {
		return fmt.Errorf("sync slot %s: %w", msg.Key, err)
	}
	w.mirrored.Update(msg.Key, func(old int64, found bool) int64 {
		if found && old > version {
			return old
		}
		return version
	})
	return nil
}

// ProcessPending mirrors slots whose change messages were lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	n, err := w.syncer.ProcessPending(ctx)
	if n > 0 {
		slog.InfoContext(ctx, "Mirrored pending slots", "count", n)
	}
	if err != nil {
		return fmt.Errorf("process pending slots: %w", err)
	}
	return nil
}

// StartupSyncCheck runs a pending sweep before the consumer starts.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	slog.InfoContext(ctx, "Running startup sync check", "batch_size", w.batchSize)
	return w.ProcessPending(ctx)
}
