package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pocketbook/internal/core"
	"pocketbook/internal/persist"
)

// Store keeps slots in process memory. It also serves the suggested
// category lists.
type Store struct {
	mu        sync.Mutex
	cats      []string
	txCats    []string
	slots     map[string]persist.Slot
	saveCalls int
}

func New(cats, txCats []string) *Store {
	return &Store{
		cats:   dedupe(cats),
		txCats: dedupe(txCats),
		slots:  make(map[string]persist.Slot),
	}
}

// NewFromFiles seeds the category lists from base/seed_categories.txt and
// base/seed_transaction_categories.txt, falling back to the defaults.
func NewFromFiles(base string) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	txCats := readLines(filepath.Join(base, "seed_transaction_categories.txt"))
	if len(cats) == 0 {
		cats = core.DefaultExpenseCategories
	}
	if len(txCats) == 0 {
		txCats = core.DefaultTransactionCategories
	}
	return New(cats, txCats)
}

// Load returns the payload last saved under key.
func (s *Store) Load(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[key]
	if !ok {
		return "", false, nil
	}
	return slot.Payload, true, nil
}

// Save replaces the payload under key and bumps its version.
func (s *Store) Save(_ context.Context, key, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := s.slots[key]
	slot.Key = key
	slot.Payload = payload
	slot.Version++
	slot.UpdatedAt = time.Now().UTC()
	s.slots[key] = slot
	s.saveCalls++
	return nil
}

func (s *Store) Version(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[key].Version, nil
}

// Saves returns how many times Save was called.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCalls
}

// List returns the expense and transaction categories.
func (s *Store) List(_ context.Context) ([]string, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cats := append([]string(nil), s.cats...)
	txCats := append([]string(nil), s.txCats...)
	return cats, txCats, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, keeping first-seen order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

var (
	_ persist.Versioned      = (*Store)(nil)
	_ persist.TaxonomyReader = (*Store)(nil)
)
