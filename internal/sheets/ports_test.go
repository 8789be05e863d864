package sheets

import (
	"testing"

	"pocketbook/internal/core"
	"pocketbook/internal/persist"
)

func TestRows(t *testing.T) {
	records := []core.Record{
		{ID: "a", Title: "Bread", Amount: core.Cents(199), Category: "Food", Date: core.NewDate(2024, 3, 1)},
		{ID: "b", Title: "Salary", Amount: core.Cents(250000), Category: "Salary", Date: core.NewDate(2024, 3, 27), Type: core.KindIncome},
	}
	rows := Rows(records)
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" {
		t.Fatalf("expected header first, got %v", rows[0])
	}
	if rows[1][0] != "b" || rows[1][1] != "2024-03-27" || rows[1][5] != "income" {
		t.Fatalf("expected newest record first, got %v", rows[1])
	}
	if rows[2][3] != 1.99 || rows[2][5] != "expense" {
		t.Fatalf("unexpected expense row %v", rows[2])
	}
}

func TestTabFor(t *testing.T) {
	if TabFor(persist.ExpensesKey) != "Expenses" || TabFor(persist.TransactionsKey) != "Transactions" {
		t.Fatalf("unexpected tab names")
	}
	if TabFor("custom") != "custom" {
		t.Fatalf("unknown keys map to themselves")
	}
}
