package backend

import (
	"context"
	"path/filepath"
	"testing"

	"pocketbook/internal/config"
	"pocketbook/internal/persist"
	"pocketbook/internal/services"
)

func TestFromAppConfig(t *testing.T) {
	app := config.Default()
	app.DataBackend = "sqlite"
	app.SQLiteDBPath = "/tmp/x.db"

	cfg, err := FromAppConfig(&app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "/tmp/x.db" || cfg.DataDirectory != app.DataDir {
		t.Fatalf("unexpected config %+v", cfg)
	}

	app.DataBackend = "sheets"
	if _, err := FromAppConfig(&app); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"file without dir", Config{Type: FileBackend}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f := NewFactory(nil)

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: dir})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if res.Tracker != nil || res.Close() != nil {
			t.Fatalf("memory backend has no tracker or cleanup")
		}
		exp, tx, err := res.Taxonomy.List(ctx)
		if err != nil || len(exp) == 0 || len(tx) <= len(exp) {
			t.Fatalf("expected default categories, got %v %v err=%v", exp, tx, err)
		}
	})

	t.Run("file", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: FileBackend, DataDirectory: dir})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := res.Bridge.Save(ctx, persist.ExpensesKey, "[]"); err != nil {
			t.Fatalf("save: %v", err)
		}
		payload, found, err := res.Bridge.Load(ctx, persist.ExpensesKey)
		if err != nil || !found || payload != "[]" {
			t.Fatalf("load: %q %v %v", payload, found, err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, DataDirectory: dir, SQLiteDBPath: filepath.Join(dir, "p.db")})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		defer res.Close()
		if _, ok := res.Bridge.(*services.SyncingBridge); !ok {
			t.Fatalf("expected syncing bridge, got %T", res.Bridge)
		}
		if res.Tracker == nil {
			t.Fatal("sqlite backend must expose a sync tracker")
		}
		if err := res.Bridge.Save(ctx, persist.TransactionsKey, "[]"); err != nil {
			t.Fatalf("save: %v", err)
		}
		pending, err := res.Tracker.PendingSync(ctx, 10)
		if err != nil || len(pending) != 1 {
			t.Fatalf("expected 1 pending slot, got %d err=%v", len(pending), err)
		}
	})
}
