// Package sheets mirrors ledger snapshots into spreadsheet tabs.
package sheets

import (
	"context"

	"pocketbook/internal/core"
	"pocketbook/internal/persist"
)

// RecordsWriter replaces the whole content of a tab with the given records.
type RecordsWriter interface {
	ReplaceRecords(ctx context.Context, tab string, records []core.Record) error
}

// Header is the first row written to every mirrored tab.
var Header = []any{"ID", "Date", "Title", "Amount", "Category", "Type", "Description"}

// TabFor names the tab that mirrors the slot under key.
func TabFor(key string) string {
	switch key {
	case persist.ExpensesKey:
		return "Expenses"
	case persist.TransactionsKey:
		return "Transactions"
	default:
		return key
	}
}

// Rows renders records newest first, header included.
func Rows(records []core.Record) [][]any {
	sorted := core.SortByDateDesc(records)
	rows := make([][]any, 0, len(sorted)+1)
	rows = append(rows, Header)
	for _, r := range sorted {
		typ := string(r.Type)
		if typ == "" {
			typ = string(core.KindExpense)
		}
		rows = append(rows, []any{
			r.ID,
			r.Date.String(),
			r.Title,
			r.Amount.Euros(),
			r.Category,
			typ,
			r.Description,
		})
	}
	return rows
}
