package core

import (
	"cmp"
	"slices"
	"time"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// MonthlySummary aggregates the records of one calendar month.
type MonthlySummary struct {
	Year      int              `json:"year"`
	Month     int              `json:"month"` // 1-12
	MonthName string           `json:"monthName"`
	Total     Money            `json:"total"`
	Breakdown map[string]Money `json:"breakdown"`
	Count     int              `json:"count"`
}

// TransactionSummary is the income/expense balance over a set of records.
type TransactionSummary struct {
	TotalIncome   Money `json:"totalIncome"`
	TotalExpenses Money `json:"totalExpenses"`
	Balance       Money `json:"balance"`
	Count         int   `json:"count"`
}

// MonthlySummaryOf sums the records falling in the same calendar month and
// year as ref. Categories with no records are absent from the breakdown.
func MonthlySummaryOf(records []Record, ref Date) MonthlySummary {
	s := MonthlySummary{
		Year:      ref.Year,
		Month:     int(ref.Month),
		MonthName: monthName(ref.Month),
		Breakdown: make(map[string]Money),
	}
	for _, r := range records {
		if !r.Date.SameMonth(ref) {
			continue
		}
		s.Total = s.Total.Add(r.Amount)
		s.Breakdown[r.Category] = s.Breakdown[r.Category].Add(r.Amount)
		s.Count++
	}
	return s
}

// Categories returns the breakdown sorted by category name.
func (s MonthlySummary) Categories() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(s.Breakdown))
	for name, amount := range s.Breakdown {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	slices.SortFunc(out, func(a, b CategoryAmount) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// TransactionSummaryOf splits records by type. Records whose type is neither
// income nor expense count towards Count but towards neither sum.
func TransactionSummaryOf(records []Record) TransactionSummary {
	var s TransactionSummary
	for _, r := range records {
		switch r.Type {
		case KindIncome:
			s.TotalIncome = s.TotalIncome.Add(r.Amount)
		case KindExpense:
			s.TotalExpenses = s.TotalExpenses.Add(r.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpenses)
	s.Count = len(records)
	return s
}

// TotalOf sums every amount regardless of type or date.
func TotalOf(records []Record) Money {
	var total Money
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}

// InMonth returns the records dated in the same calendar month as ref, in
// their original order.
func InMonth(records []Record, ref Date) []Record {
	out := make([]Record, 0)
	for _, r := range records {
		if r.Date.SameMonth(ref) {
			out = append(out, r)
		}
	}
	return out
}

// SortByDateDesc returns a copy ordered newest first. Records on the same day
// keep their relative order.
func SortByDateDesc(records []Record) []Record {
	out := slices.Clone(records)
	if out == nil {
		out = []Record{}
	}
	slices.SortStableFunc(out, func(a, b Record) int {
		switch {
		case a.Date.After(b.Date.Date):
			return -1
		case a.Date.Before(b.Date.Date):
			return 1
		}
		return 0
	})
	return out
}

func monthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return m.String()
}
