package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{NewDate(2025, 2, 30), false},
		{Date{}, false}, // zero date
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-03-15", NewDate(2024, 3, 15), true},
		{"2024-03-31T23:30:00-05:00", NewDate(2024, 3, 31), true},
		{"2024-03-01T00:15:00.000Z", NewDate(2024, 3, 1), true},
		{"2024-03-15T10:00:00", NewDate(2024, 3, 15), true},
		{"", Date{}, true},
		{"15/03/2024", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		D Date `json:"d"`
	}{NewDate(2024, 2, 29)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"d":"2024-02-29"}` {
		t.Fatalf("unexpected json %s", b)
	}
}

func TestRecordValidate(t *testing.T) {
	good := Record{
		Title:    "Lunch",
		Amount:   Cents(1250),
		Category: "Food",
		Date:     NewDate(2025, 1, 1),
		Type:     KindExpense,
	}
	if err := good.Validate(TransactionLedger); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	multibyte := good
	multibyte.Title = strings.Repeat("é", maxTitleLen)
	if err := multibyte.Validate(TransactionLedger); err != nil {
		t.Fatalf("%d two-byte characters should fit, got %v", maxTitleLen, err)
	}
	noType := good
	noType.Type = ""
	if err := noType.Validate(ExpenseLedger); err != nil {
		t.Fatalf("expense ledger should not require a type, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(*Record)
		want error
	}{
		{"empty title", func(r *Record) { r.Title = "  " }, ErrEmptyTitle},
		{"zero amount", func(r *Record) { r.Amount = Cents(0) }, ErrInvalidAmount},
		{"negative amount", func(r *Record) { r.Amount = Cents(-1) }, ErrInvalidAmount},
		{"zero date", func(r *Record) { r.Date = Date{} }, ErrInvalidDate},
		{"unknown type", func(r *Record) { r.Type = "transfer" }, ErrInvalidKind},
		{"missing type", func(r *Record) { r.Type = "" }, ErrInvalidKind},
		{"title too long", func(r *Record) { r.Title = strings.Repeat("é", maxTitleLen+1) }, ErrTitleTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := good
			tc.mut(&r)
			err := r.Validate(TransactionLedger)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected error to wrap ErrValidation, got %v", err)
			}
		})
	}
}

func TestPatchApply(t *testing.T) {
	r := Record{ID: "a", Title: "Old", Amount: Cents(100), Category: "Food", Date: NewDate(2025, 1, 1)}
	title := "New"
	amount := Cents(250)
	got := Patch{Title: &title, Amount: &amount}.Apply(r)
	if got.ID != "a" || got.Title != "New" || got.Amount.Cents != 250 || got.Category != "Food" {
		t.Fatalf("unexpected merge result %+v", got)
	}
	if !(Patch{}).IsEmpty() {
		t.Fatalf("zero patch should be empty")
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"": "", "All": "", "income": KindIncome, " Expense ": KindExpense} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("%q expected %q, got %q (err=%v)", in, want, got, err)
		}
	}
	if _, err := ParseKind("transfer"); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}
