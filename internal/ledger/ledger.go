// Package ledger owns the in-memory record collections. A Ledger keeps its
// records in insertion order, hands every new snapshot to its observers and
// then saves it through a persist.Bridge.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"pocketbook/internal/core"
	"pocketbook/internal/notify"
	"pocketbook/internal/persist"
)

// ErrPersist wraps bridge failures while saving a snapshot. The in-memory
// change has already been applied and published when it is returned.
var ErrPersist = errors.New("persist snapshot")

// Option configures a Ledger.
type Option func(*Ledger)

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(l *Ledger) { l.newID = gen }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithKey overrides the slot key derived from the ledger kind.
func WithKey(key string) Option {
	return func(l *Ledger) { l.key = key }
}

// WithClock sets the source of "today" for the current-month helpers.
func WithClock(today func() core.Date) Option {
	return func(l *Ledger) { l.today = today }
}

type Ledger struct {
	kind   core.LedgerKind
	key    string
	bridge persist.Bridge
	newID  IDGenerator
	logger *slog.Logger
	today  func() core.Date

	// writeMu is held from mutation through persist.
	writeMu sync.Mutex

	mu      sync.RWMutex
	records []core.Record

	changes *notify.Broadcaster[[]core.Record]
}

// Open loads the slot for kind from bridge. Stored text that cannot be
// decoded is logged and the ledger starts empty; bridge errors are returned.
func Open(ctx context.Context, kind core.LedgerKind, bridge persist.Bridge, opts ...Option) (*Ledger, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("open ledger %q: %w", kind, core.ErrUnknownLedger)
	}
	if bridge == nil {
		return nil, errors.New("open ledger: nil bridge")
	}
	l := &Ledger{
		kind:   kind,
		key:    persist.KeyFor(kind),
		bridge: bridge,
		newID:  NewID,
		today:  core.Today,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.logger = l.logger.With("component", "ledger", "ledger", string(kind))

	payload, found, err := bridge.Load(ctx, l.key)
	if err != nil {
		return nil, fmt.Errorf("load slot %s: %w", l.key, err)
	}
	records := []core.Record{}
	if found {
		decoded, err := Decode(payload)
		if err != nil {
			l.logger.ErrorContext(ctx, "Discarding unreadable stored ledger", "slot_key", l.key, "error", err)
		} else {
			records = decoded
		}
	}
	l.records = records
	l.changes = notify.New(slices.Clone(records))

	l.logger.InfoContext(ctx, "Ledger opened", "slot_key", l.key, "count", len(records))
	return l, nil
}

func (l *Ledger) Kind() core.LedgerKind { return l.kind }

// All returns a copy of every record in insertion order.
func (l *Ledger) All() []core.Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.records)
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Get returns the record with the given id.
func (l *Ledger) Get(id string) (core.Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := l.indexOf(id)
	if i < 0 {
		return core.Record{}, false
	}
	return l.records[i], true
}

// Insert validates d, assigns a fresh id and appends it.
func (l *Ledger) Insert(ctx context.Context, d core.Draft) (core.Record, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	r := d.Record("").Normalize(l.kind)
	if err := r.Validate(l.kind); err != nil {
		return core.Record{}, err
	}
	id, err := l.newID()
	if err != nil {
		return core.Record{}, err
	}
	r.ID = id

	l.mu.Lock()
	if l.indexOf(id) >= 0 {
		l.mu.Unlock()
		return core.Record{}, fmt.Errorf("generated id %s already in use", id)
	}
	l.records = append(l.records, r)
	snapshot := slices.Clone(l.records)
	l.mu.Unlock()

	l.logger.DebugContext(ctx, "Record inserted", "record_id", r.ID, "amount_cents", r.Amount.Cents, "category", r.Category)
	return r, l.commit(ctx, snapshot)
}

// Delete removes the record with id. Unknown ids are ignored.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.Lock()
	i := l.indexOf(id)
	if i < 0 {
		l.mu.Unlock()
		return nil
	}
	l.records = slices.Delete(slices.Clone(l.records), i, i+1)
	snapshot := slices.Clone(l.records)
	l.mu.Unlock()

	l.logger.DebugContext(ctx, "Record deleted", "record_id", id)
	return l.commit(ctx, snapshot)
}

// Update merges the set fields of p into the record with id. Unknown ids are
// ignored. The merged record must still be valid.
func (l *Ledger) Update(ctx context.Context, id string, p core.Patch) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.RLock()
	i := l.indexOf(id)
	var current core.Record
	if i >= 0 {
		current = l.records[i]
	}
	l.mu.RUnlock()
	if i < 0 {
		return nil
	}

	merged := p.Apply(current).Normalize(l.kind)
	merged.ID = current.ID
	if err := merged.Validate(l.kind); err != nil {
		return err
	}

	l.mu.Lock()
	next := slices.Clone(l.records)
	next[i] = merged
	l.records = next
	snapshot := slices.Clone(next)
	l.mu.Unlock()

	l.logger.DebugContext(ctx, "Record updated", "record_id", id)
	return l.commit(ctx, snapshot)
}

// Clear removes every record. Clearing an empty ledger does nothing.
func (l *Ledger) Clear(ctx context.Context) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.Lock()
	if len(l.records) == 0 {
		l.mu.Unlock()
		return nil
	}
	n := len(l.records)
	l.records = []core.Record{}
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "Ledger cleared", "count", n)
	return l.commit(ctx, []core.Record{})
}

// ByCategory returns the records in category. "" and "All" match everything.
func (l *Ledger) ByCategory(category string) []core.Record {
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, core.AllCategories) {
		return l.All()
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]core.Record, 0)
	for _, r := range l.records {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// ByType returns the records of kind k. The empty kind matches everything.
func (l *Ledger) ByType(k core.Kind) []core.Record {
	if k == "" {
		return l.All()
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]core.Record, 0)
	for _, r := range l.records {
		if r.Type == k {
			out = append(out, r)
		}
	}
	return out
}

// Subscribe calls fn with the current snapshot and then with every later one.
// fn must not mutate the ledger.
func (l *Ledger) Subscribe(fn func([]core.Record)) (unsubscribe func()) {
	return l.changes.Subscribe(func(snapshot []core.Record) {
		fn(slices.Clone(snapshot))
	})
}

func (l *Ledger) MonthlySummary(ref core.Date) core.MonthlySummary {
	return core.MonthlySummaryOf(l.All(), ref)
}

func (l *Ledger) CurrentMonthSummary() core.MonthlySummary {
	return l.MonthlySummary(l.today())
}

func (l *Ledger) TransactionSummary() core.TransactionSummary {
	return core.TransactionSummaryOf(l.All())
}

func (l *Ledger) Total() core.Money {
	return core.TotalOf(l.All())
}

func (l *Ledger) InMonth(ref core.Date) []core.Record {
	return core.InMonth(l.All(), ref)
}

func (l *Ledger) CurrentMonth() []core.Record {
	return l.InMonth(l.today())
}

// Close detaches every observer.
func (l *Ledger) Close() {
	l.changes.Close()
}

// commit publishes snapshot and then saves it. Callers hold writeMu.
func (l *Ledger) commit(ctx context.Context, snapshot []core.Record) error {
	l.changes.Publish(snapshot)

	payload, err := Encode(snapshot)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := l.bridge.Save(ctx, l.key, payload); err != nil {
		l.logger.ErrorContext(ctx, "Failed to persist ledger", "slot_key", l.key, "error", err)
		return fmt.Errorf("%w: save slot %s: %w", ErrPersist, l.key, err)
	}
	return nil
}

// indexOf requires mu.
func (l *Ledger) indexOf(id string) int {
	return slices.IndexFunc(l.records, func(r core.Record) bool { return r.ID == id })
}
