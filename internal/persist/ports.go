// Package persist defines the durable slot ports the ledgers save their
// snapshots through. Backends live in subpackages and in internal/storage.
package persist

import (
	"context"
	"errors"
	"time"

	"pocketbook/internal/core"
)

// Slot keys, one per ledger.
const (
	ExpensesKey     = "expenses"
	TransactionsKey = "transactions"
)

var ErrSlotNotFound = errors.New("slot not found")

// Ports for outbound adapters.
type (
	// Bridge stores one opaque text payload per key.
	Bridge interface {
		// Load returns found=false when nothing was ever saved under key.
		Load(ctx context.Context, key string) (payload string, found bool, err error)
		Save(ctx context.Context, key, payload string) error
	}

	// Versioned bridges bump a per-slot version on every save.
	Versioned interface {
		Bridge
		Version(ctx context.Context, key string) (int64, error)
	}

	// SyncTracker exposes the slots whose latest version has not been
	// mirrored yet.
	SyncTracker interface {
		Slot(ctx context.Context, key string) (Slot, error)
		PendingSync(ctx context.Context, limit int) ([]Slot, error)
		MarkSynced(ctx context.Context, key string, version int64) error
	}

	// TaxonomyReader lists the suggested categories for both ledgers.
	TaxonomyReader interface {
		List(ctx context.Context) (expense []string, transaction []string, err error)
	}
)

// Slot is a stored payload together with its sync bookkeeping.
type Slot struct {
	Key           string
	Payload       string
	Version       int64
	SyncedVersion int64
	UpdatedAt     time.Time
}

// Pending reports whether the slot has changes not yet mirrored.
func (s Slot) Pending() bool {
	return s.Version > s.SyncedVersion
}

// KeyFor returns the slot key a ledger of kind lk is stored under.
func KeyFor(lk core.LedgerKind) string {
	switch lk {
	case core.ExpenseLedger:
		return ExpensesKey
	case core.TransactionLedger:
		return TransactionsKey
	default:
		return string(lk)
	}
}
