// Package memory keeps mirrored tabs in process memory. The worker falls back
// to it when no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"pocketbook/internal/core"
	"pocketbook/internal/sheets"
)

type Writer struct {
	mu     sync.Mutex
	tabs   map[string][][]any
	writes int
}

func New() *Writer {
	return &Writer{tabs: make(map[string][][]any)}
}

// ReplaceRecords stores the rendered rows for tab.
func (w *Writer) ReplaceRecords(_ context.Context, tab string, records []core.Record) error {
	rows := sheets.Rows(records)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tabs[tab] = rows
	w.writes++
	return nil
}

// Tab returns the rows last written to tab, header included.
func (w *Writer) Tab(tab string) ([][]any, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rows, ok := w.tabs[tab]
	return rows, ok
}

// Writes returns the number of ReplaceRecords calls.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

var _ sheets.RecordsWriter = (*Writer)(nil)
