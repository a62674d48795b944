package core

import (
	"errors"
	"strings"
	"time"
)

// RawSourceImage marks ledger rows whose input was a receipt photo rather
// than a transcript.
const RawSourceImage = "[photo]"

type (
	// Date is a calendar date (business date of the spend, not logging time).
	Date struct {
		time.Time
	}

	// Money is an amount in cents of the ledger's base currency.
	Money struct {
		Cents int64
	}

	// Expense is one logged transaction. Amount is always in the base
	// currency; Currency records the code the spend was stated in, and
	// OriginalCurrency/OriginalAmount are kept only for foreign spends.
	Expense struct {
		Date             Date
		Amount           Money
		Currency         string
		Category         string
		Description      string
		RawSource        string
		OriginalCurrency string
		OriginalAmount   float64
	}

	// Candidate is the transient pre-ledger structure produced by
	// extraction. Amount is in original-currency units and nil when the
	// input gave no reasonable value. Candidates are never persisted.
	Candidate struct {
		Date        Date
		Amount      *float64
		Currency    string
		Category    string
		Description string
		RawSource   string
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day (UTC midnight).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate enforces the persistence invariant: every stored expense has a
// resolved amount, category, currency and date.
func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(e.Currency) != 3 {
		return ErrInvalidCurrency
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// MissingFields lists the candidate fields that still need a human
// follow-up before the expense can be persisted.
func (c Candidate) MissingFields() []string {
	var missing []string
	if c.Amount == nil {
		missing = append(missing, "amount")
	}
	if len(strings.TrimSpace(c.Description)) < 2 {
		missing = append(missing, "description")
	}
	return missing
}

// NeedsClarification reports whether the candidate is incomplete.
func (c Candidate) NeedsClarification() bool {
	return len(c.MissingFields()) > 0
}
