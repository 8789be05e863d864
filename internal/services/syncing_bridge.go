package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"pocketbook/internal/persist"
)

// VersionedStore saves a slot and reports the version it now has.
type VersionedStore interface {
	persist.Versioned
	SaveVersioned(ctx context.Context, key, payload string) (int64, error)
}

// ChangePublisher announces saved slot versions.
type ChangePublisher interface {
	PublishLedgerChanged(ctx context.Context, key string, version int64, count int) error
}

// SyncingBridge saves through store and then announces the new version so the
// sync worker can mirror it. The save is what the caller waits on; a failed
// announcement is only logged and the pending sweep picks the slot up later.
type SyncingBridge struct {
	store     VersionedStore
	publisher ChangePublisher
}

func NewSyncingBridge(store VersionedStore, publisher ChangePublisher) *SyncingBridge {
	return &SyncingBridge{
		store:     store,
		publisher: publisher,
	}
}

func (b *SyncingBridge) Load(ctx context.Context, key string) (string, bool, error) {
	return b.store.Load(ctx, key)
}

func (b *SyncingBridge) Version(ctx context.Context, key string) (int64, error) {
	return b.store.Version(ctx, key)
}

// Ping checks the underlying store when it supports it.
func (b *SyncingBridge) Ping(ctx context.Context) error {
	if p, ok := b.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Save stores payload locally first, then publishes a change message.
func (b *SyncingBridge) Save(ctx context.Context, key, payload string) error {
	version, err := b.store.SaveVersioned(ctx, key, payload)
	if err != nil {
		return fmt.Errorf("save slot: %w", err)
	}

	if b.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping ledger changed message", "slot_key", key)
		return nil
	}
	if err := b.publisher.PublishLedgerChanged(ctx, key, version, countRecords(payload)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger changed message",
			"slot_key", key,
			"slot_version", version,
			"error", err)
	}
	return nil
}

// Close closes the store and the publisher when they support it.
func (b *SyncingBridge) Close() error {
	var errs []error
	if c, ok := b.store.(interface{ Close() error }); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := b.publisher.(interface{ Close() error }); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close syncing bridge: %w", errors.Join(errs...))
	}
	return nil
}

// countRecords returns the length of a JSON array payload, or 0.
func countRecords(payload string) int {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return 0
	}
	return len(items)
}

var _ persist.Versioned = (*SyncingBridge)(nil)
