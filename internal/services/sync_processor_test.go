package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pocketbook/internal/core"
	"pocketbook/internal/ledger"
	"pocketbook/internal/persist"
	sheetsmem "pocketbook/internal/sheets/memory"
	"pocketbook/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func savePayload(t *testing.T, repo *storage.SQLiteRepository, key string, records []core.Record) int64 {
	t.Helper()
	payload, err := ledger.Encode(records)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	v, err := repo.SaveVersioned(context.Background(), key, payload)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	return v
}

type failingWriter struct{ err error }

func (w failingWriter) ReplaceRecords(context.Context, string, []core.Record) error { return w.err }

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()
	if config.PollInterval != 30*time.Second {
		t.Errorf("expected PollInterval 30s, got %v", config.PollInterval)
	}
	if config.BatchSize != 10 {
		t.Errorf("expected BatchSize 10, got %d", config.BatchSize)
	}

	p := NewSyncProcessor(nil, nil, SyncProcessorConfig{})
	if p.config != config {
		t.Errorf("zero config should fall back to defaults, got %+v", p.config)
	}
}

func TestSyncSlot(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	writer := sheetsmem.New()
	p := NewSyncProcessor(repo, writer, DefaultSyncProcessorConfig())

	v := savePayload(t, repo, persist.ExpensesKey, []core.Record{
		{ID: "a", Title: "Bread", Amount: core.Cents(250), Category: "Food", Date: core.NewDate(2024, 3, 2)},
		{ID: "b", Title: "Rent", Amount: core.Cents(80000), Category: "Housing", Date: core.NewDate(2024, 3, 1)},
	})

	got, err := p.SyncSlot(ctx, persist.ExpensesKey, v)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got != v {
		t.Fatalf("expected mirrored version %d, got %d", v, got)
	}
	rows, ok := writer.Tab("Expenses")
	if !ok || len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %v", rows)
	}

	slot, err := repo.Slot(ctx, persist.ExpensesKey)
	if err != nil {
		t.Fatalf("slot: %v", err)
	}
	if slot.Pending() {
		t.Fatalf("slot should be synced, got %+v", slot)
	}

	// an already mirrored version is skipped
	if _, err := p.SyncSlot(ctx, persist.ExpensesKey, v); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if writer.Writes() != 1 {
		t.Fatalf("expected 1 write, got %d", writer.Writes())
	}
}

func TestSyncSlotMissing(t *testing.T) {
	p := NewSyncProcessor(newTestRepo(t), sheetsmem.New(), DefaultSyncProcessorConfig())
	_, err := p.SyncSlot(context.Background(), "nope", 1)
	if !errors.Is(err, persist.ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}
}

func TestSyncSlotWriterFailureKeepsPending(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	boom := errors.New("quota")
	p := NewSyncProcessor(repo, failingWriter{err: boom}, DefaultSyncProcessorConfig())

	v := savePayload(t, repo, persist.TransactionsKey, []core.Record{})
	if _, err := p.SyncSlot(ctx, persist.TransactionsKey, v); !errors.Is(err, boom) {
		t.Fatalf("expected writer error, got %v", err)
	}
	pending, err := repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected slot to stay pending, got %d", len(pending))
	}
}

func TestProcessPending(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	writer := sheetsmem.New()
	p := NewSyncProcessor(repo, writer, DefaultSyncProcessorConfig())

	savePayload(t, repo, persist.ExpensesKey, []core.Record{})
	savePayload(t, repo, persist.TransactionsKey, []core.Record{
		{ID: "x", Title: "Salary", Amount: core.Cents(100000), Category: "Salary", Date: core.NewDate(2024, 3, 1), Type: core.KindIncome},
	})

	n, err := p.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 synced slots, got %d", n)
	}
	if _, ok := writer.Tab("Transactions"); !ok {
		t.Fatalf("expected Transactions tab")
	}

	n, err = p.ProcessPending(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected nothing pending, got %d err=%v", n, err)
	}
}

func TestSyncProcessorStartStop(t *testing.T) {
	repo := newTestRepo(t)
	writer := sheetsmem.New()
	config := DefaultSyncProcessorConfig()
	config.PollInterval = 10 * time.Millisecond
	p := NewSyncProcessor(repo, writer, config)

	savePayload(t, repo, persist.ExpensesKey, []core.Record{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if p.IsRunning() {
		t.Fatal("processor should not be running initially")
	}
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Fatal("expected error when starting already running processor")
	}

	deadline := time.Now().Add(2 * time.Second)
	for writer.Writes() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if writer.Writes() == 0 {
		t.Fatal("expected the sweep loop to mirror the pending slot")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if p.IsRunning() {
		t.Fatal("processor should not be running after stop")
	}
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("stopping a stopped processor should be a no-op, got %v", err)
	}
}
