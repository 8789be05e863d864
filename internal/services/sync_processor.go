package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pocketbook/internal/ledger"
	"pocketbook/internal/persist"
	"pocketbook/internal/sheets"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to sweep for pending slots (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of slots mirrored per sweep (default: 10)
	BatchSize int
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
	}
}

// syncErrorRecorder is implemented by trackers that keep the last failure.
type syncErrorRecorder interface {
	MarkSyncError(ctx context.Context, key string, err error) error
}

// SyncProcessor mirrors slot snapshots into spreadsheet tabs.
type SyncProcessor struct {
	tracker persist.SyncTracker
	sheets  sheets.RecordsWriter
	config  SyncProcessorConfig

	// one mirror write at a time
	syncMu sync.Mutex

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(tracker persist.SyncTracker, writer sheets.RecordsWriter, config SyncProcessorConfig) *SyncProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultSyncProcessorConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSyncProcessorConfig().BatchSize
	}
	return &SyncProcessor{
		tracker: tracker,
		sheets:  writer,
		config:  config,
	}
}

// SyncSlot mirrors the slot under key unless a version >= minVersion has
// already been mirrored. It returns the version that is now mirrored.
func (p *SyncProcessor) SyncSlot(ctx context.Context, key string, minVersion int64) (int64, error) {
	p.syncMu.Lock()
	defer p.syncMu.Unlock()

	slot, err := p.tracker.Slot(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("get slot %s: %w", key, err)
	}
	if slot.SyncedVersion >= minVersion && !slot.Pending() {
		slog.DebugContext(ctx, "Slot already mirrored", "slot_key", key, "slot_version", slot.SyncedVersion)
		return slot.SyncedVersion, nil
	}
	if err := p.mirror(ctx, slot); err != nil {
		p.recordError(ctx, key, err)
		return 0, err
	}
	return slot.Version, nil
}

// ProcessPending mirrors up to BatchSize slots with unmirrored versions. It
// is the fallback for lost change messages.
func (p *SyncProcessor) ProcessPending(ctx context.Context) (int, error) {
	slots, err := p.tracker.PendingSync(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending slots: %w", err)
	}
	if len(slots) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending slots", "count", len(slots))

	synced := 0
	var errs []error
	for _, slot := range slots {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if _, err := p.SyncSlot(ctx, slot.Key, slot.Version); err != nil {
			errs = append(errs, err)
			continue
		}
		synced++
	}
	return synced, errors.Join(errs...)
}

func (p *SyncProcessor) mirror(ctx context.Context, slot persist.Slot) error {
	records, err := ledger.Decode(slot.Payload)
	if err != nil {
		return fmt.Errorf("decode slot %s: %w", slot.Key, err)
	}
	if err := p.sheets.ReplaceRecords(ctx, sheets.TabFor(slot.Key), records); err != nil {
		return fmt.Errorf("mirror slot %s: %w", slot.Key, err)
	}
	if err := p.tracker.MarkSynced(ctx, slot.Key, slot.Version); err != nil {
		return fmt.Errorf("mark slot %s synced: %w", slot.Key, err)
	}

	slog.InfoContext(ctx, "Mirrored slot to Google Sheets",
		"slot_key", slot.Key,
		"slot_version", slot.Version,
		"count", len(records))
	return nil
}

func (p *SyncProcessor) recordError(ctx context.Context, key string, syncErr error) {
	slog.WarnContext(ctx, "Slot mirroring failed", "slot_key", key, "error", syncErr)
	if rec, ok := p.tracker.(syncErrorRecorder); ok {
		if err := rec.MarkSyncError(ctx, key, syncErr); err != nil {
			slog.ErrorContext(ctx, "Failed to record sync error", "slot_key", key, "error", err)
		}
	}
}

// Start begins the sweep loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to expire.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.sweep(ctx)
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *SyncProcessor) sweep(ctx context.Context) {
	if _, err := p.ProcessPending(ctx); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Pending sweep failed", "error", err)
	}
}
