package http

import (
	"net/http"
	"strconv"
	"strings"

	"pocketbook/internal/core"
)

const allCategories = core.AllCategories

// parseMonthRef reads year and month from the query. Missing values fall
// back to the month of today.
func parseMonthRef(r *http.Request, today core.Date) (core.Date, error) {
	year, month := today.Year, int(today.Month)
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return core.Date{}, badRequestf("invalid year %q", v)
		}
		year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return core.Date{}, badRequestf("invalid month %q", v)
		}
		month = m
	}
	return core.NewDate(year, month, 1), nil
}

// filterCategory keeps the records in category. "" and "All" keep everything.
func filterCategory(records []core.Record, category string) []core.Record {
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, allCategories) {
		return records
	}
	out := make([]core.Record, 0, len(records))
	for _, rec := range records {
		if rec.Category == category {
			out = append(out, rec)
		}
	}
	return out
}

// sanitizeInput removes control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
