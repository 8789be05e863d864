package core

import "testing"

func rec(title string, cents int64, category string, d Date, k Kind) Record {
	return Record{ID: title, Title: title, Amount: Cents(cents), Category: category, Date: d, Type: k}
}

func TestTransactionSummaryOf(t *testing.T) {
	records := []Record{
		rec("pay", 1000, "Salary", NewDate(2024, 3, 1), KindIncome),
		rec("food", 400, "Food", NewDate(2024, 3, 2), KindExpense),
	}
	got := TransactionSummaryOf(records)
	want := TransactionSummary{TotalIncome: Cents(1000), TotalExpenses: Cents(400), Balance: Cents(600), Count: 2}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	empty := TransactionSummaryOf(nil)
	if empty != (TransactionSummary{}) {
		t.Fatalf("expected zero summary, got %+v", empty)
	}
}

func TestTransactionSummaryOfUnknownType(t *testing.T) {
	records := []Record{
		rec("pay", 1000, "Salary", NewDate(2024, 3, 1), KindIncome),
		rec("legacy", 999, "Other", NewDate(2024, 3, 1), "transfer"),
	}
	got := TransactionSummaryOf(records)
	if got.TotalIncome.Cents != 1000 || got.TotalExpenses.Cents != 0 || got.Count != 2 {
		t.Fatalf("unknown type should be counted but not summed, got %+v", got)
	}
}

func TestMonthlySummaryOfBoundary(t *testing.T) {
	records := []Record{
		rec("last", 500, "Food", NewDate(2024, 3, 31), ""),
		rec("first-next", 700, "Food", NewDate(2024, 4, 1), ""),
		rec("bus", 250, "Transport", NewDate(2024, 3, 10), ""),
		rec("last-year", 900, "Food", NewDate(2023, 3, 15), ""),
	}
	got := MonthlySummaryOf(records, NewDate(2024, 3, 15))
	if got.Total.Cents != 750 || got.Count != 2 {
		t.Fatalf("expected total 750 over 2 records, got %+v", got)
	}
	if got.Breakdown["Food"].Cents != 500 || got.Breakdown["Transport"].Cents != 250 {
		t.Fatalf("unexpected breakdown %+v", got.Breakdown)
	}
	if got.Year != 2024 || got.Month != 3 || got.MonthName != "March" {
		t.Fatalf("unexpected period %d-%d %s", got.Year, got.Month, got.MonthName)
	}
	cats := got.Categories()
	if len(cats) != 2 || cats[0].Name != "Food" || cats[1].Name != "Transport" {
		t.Fatalf("unexpected sorted categories %+v", cats)
	}
}

func TestMonthlySummaryOfEmpty(t *testing.T) {
	got := MonthlySummaryOf(nil, NewDate(2024, 1, 1))
	if got.Total.Cents != 0 || got.Count != 0 {
		t.Fatalf("expected empty summary, got %+v", got)
	}
	if got.Breakdown == nil || len(got.Breakdown) != 0 {
		t.Fatalf("expected empty non-nil breakdown, got %#v", got.Breakdown)
	}
}

func TestTotalOf(t *testing.T) {
	records := []Record{
		rec("a", 100, "Food", NewDate(2024, 1, 1), KindIncome),
		rec("b", 250, "Food", NewDate(2022, 6, 1), KindExpense),
	}
	if got := TotalOf(records); got.Cents != 350 {
		t.Fatalf("expected 350, got %d", got.Cents)
	}
	if got := TotalOf(nil); got.Cents != 0 {
		t.Fatalf("expected 0, got %d", got.Cents)
	}
}

func TestSortByDateDesc(t *testing.T) {
	records := []Record{
		rec("old", 1, "x", NewDate(2024, 1, 1), ""),
		rec("new", 1, "x", NewDate(2024, 5, 1), ""),
		rec("mid-a", 1, "x", NewDate(2024, 3, 1), ""),
		rec("mid-b", 1, "x", NewDate(2024, 3, 1), ""),
	}
	got := SortByDateDesc(records)
	order := []string{"new", "mid-a", "mid-b", "old"}
	for i, id := range order {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
	if records[0].ID != "old" {
		t.Fatalf("input slice must not be reordered")
	}
}

func TestInMonth(t *testing.T) {
	records := []Record{
		rec("a", 1, "x", NewDate(2024, 2, 29), ""),
		rec("b", 1, "x", NewDate(2024, 3, 1), ""),
	}
	got := InMonth(records, NewDate(2024, 2, 1))
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected records %+v", got)
	}
}
