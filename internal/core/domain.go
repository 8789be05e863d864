package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

const (
	ExpenseLedger     LedgerKind = "expenses"
	TransactionLedger LedgerKind = "transactions"
)

type (
	// Kind is the direction of a transaction.
	Kind string

	// LedgerKind tells the expense-only ledger apart from the unified
	// transaction ledger.
	LedgerKind string

	// Date is a calendar date. Time of day is never stored.
	Date struct {
		civil.Date
	}

	Money struct {
		Cents int64
	}

	// Record is one entry of a ledger. Amount is always a magnitude; the
	// direction comes from Type or from the ledger kind.
	Record struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Amount      Money  `json:"amount"`
		Category    string `json:"category"`
		Date        Date   `json:"date"`
		Description string `json:"description"`
		Type        Kind   `json:"type,omitempty"`
	}

	// Draft is a record that has not been assigned an ID yet.
	Draft struct {
		Title       string
		Amount      Money
		Category    string
		Date        Date
		Description string
		Type        Kind
	}

	// Patch carries the fields of a partial update. Nil fields are left untouched.
	Patch struct {
		Title       *string
		Amount      *Money
		Category    *string
		Date        *Date
		Description *string
		Type        *Kind
	}
)

// maxTitleLen is counted in characters, not bytes.
const maxTitleLen = 200

var (
	ErrValidation = errors.New("validation failed")

	ErrEmptyTitle     = fmt.Errorf("%w: empty title", ErrValidation)
	ErrInvalidAmount  = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidDate    = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidKind    = fmt.Errorf("%w: type must be income or expense", ErrValidation)
	ErrTitleTooLong   = fmt.Errorf("%w: title too long (max %d characters)", ErrValidation, maxTitleLen)
	ErrUnknownLedger  = errors.New("unknown ledger kind")
	errDateOutOfRange = errors.New("date out of range")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Date: civil.Date{Year: year, Month: time.Month(month), Day: day}}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	return Date{Date: civil.DateOf(t)}
}

// Today returns the local calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate accepts "2006-01-02", a local date-time, or an RFC 3339 timestamp.
// Timestamps keep the calendar date as written, ignoring the offset.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0000-00-00" {
		return Date{}, nil
	}
	if d, err := civil.ParseDate(s); err == nil {
		return Date{Date: d}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return DateOf(t), nil
	}
	if dt, err := civil.ParseDateTime(s); err == nil {
		return Date{Date: dt.Date}, nil
	}
	return Date{}, fmt.Errorf("parse date %q: %w", s, ErrInvalidDate)
}

func (d Date) IsZero() bool {
	return d.Date == civil.Date{}
}

// SameMonth reports whether d and other fall in the same calendar month and year.
func (d Date) SameMonth(other Date) bool {
	return d.Year == other.Year && d.Month == other.Month
}

func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte(""), nil
	}
	return []byte(d.Date.String()), nil
}

func (d *Date) UnmarshalText(data []byte) error {
	parsed, err := ParseDate(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	if !d.IsValid() {
		return ErrInvalidDate
	}
	if d.Year < 1 || d.Year > 9999 {
		return fmt.Errorf("%w: %w", ErrInvalidDate, errDateOutOfRange)
	}
	return nil
}

func (k Kind) Validate() error {
	switch k {
	case KindIncome, KindExpense:
		return nil
	default:
		return ErrInvalidKind
	}
}

// ParseKind maps user input to a Kind; "" and "all" map to the empty Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", "all":
		return "", nil
	case KindIncome, KindExpense:
		return k, nil
	default:
		return "", ErrInvalidKind
	}
}

func (lk LedgerKind) IsValid() bool {
	return lk == ExpenseLedger || lk == TransactionLedger
}

// Record returns the draft as a record carrying the given id.
func (d Draft) Record(id string) Record {
	return Record{
		ID:          id,
		Title:       d.Title,
		Amount:      d.Amount,
		Category:    d.Category,
		Date:        d.Date,
		Description: d.Description,
		Type:        d.Type,
	}
}

// Apply merges the set fields of p into r. The ID is never changed.
func (p Patch) Apply(r Record) Record {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Type != nil {
		r.Type = *p.Type
	}
	return r
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Amount == nil && p.Category == nil &&
		p.Date == nil && p.Description == nil && p.Type == nil
}

// Validate checks the record against the rules of the ledger it belongs to.
// Only the transaction ledger requires a type.
func (r Record) Validate(lk LedgerKind) error {
	if !lk.IsValid() {
		return ErrUnknownLedger
	}
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return ErrTitleTooLong
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if lk == TransactionLedger {
		if err := r.Type.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Normalize trims the free-text fields. The expense ledger never carries a type.
func (r Record) Normalize(lk LedgerKind) Record {
	r.Title = strings.TrimSpace(r.Title)
	r.Category = strings.TrimSpace(r.Category)
	r.Description = strings.TrimSpace(r.Description)
	r.Type = Kind(strings.ToLower(strings.TrimSpace(string(r.Type))))
	if lk == ExpenseLedger {
		r.Type = ""
	}
	return r
}
