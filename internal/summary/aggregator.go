// Package summary computes period-bounded spend reports from the ledger:
// totals, category breakdowns and high-value outliers.
package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/ledger"
)

type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

type CategoryAmount struct {
	Category string
	Amount   core.Money
}

type Summary struct {
	Period     Period
	From       core.Date
	To         core.Date
	Total      core.Money
	Count      int
	Currency   string // mode of occurrence among the filtered rows
	ByCategory []CategoryAmount
	HighValue  []core.Expense
}

type Aggregator struct {
	expenses  ledger.ExpenseStore
	threshold core.Money
	base      string
}

func NewAggregator(expenses ledger.ExpenseStore, highValueThreshold core.Money, baseCurrency string) *Aggregator {
	return &Aggregator{expenses: expenses, threshold: highValueThreshold, base: baseCurrency}
}

// PeriodStart returns the inclusive lower bound: Monday 00:00 of the
// current week, or day 1 00:00 of the current month.
func PeriodStart(p Period, now time.Time) time.Time {
	switch p {
	case PeriodWeek:
		offset := int(now.Weekday()) - int(time.Monday)
		if offset < 0 {
			offset = 6 // Sunday
		}
		d := now.AddDate(0, 0, -offset)
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location())
	default:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
}

// Summarize builds the report for the period ending at now. Boundaries
// are computed at call time, never cached. An empty period yields a
// well-formed zero summary.
func (a *Aggregator) Summarize(ctx context.Context, p Period, now time.Time) (Summary, error) {
	if p != PeriodWeek && p != PeriodMonth {
		return Summary{}, fmt.Errorf("unknown period %q", p)
	}
	all, err := a.expenses.ListAll(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("read ledger: %w", err)
	}

	from := PeriodStart(p, now)
	s := Summary{
		Period:   p,
		From:     core.DateOf(from),
		To:       core.DateOf(now),
		Currency: a.base,
	}

	// Bounds are calendar dates: expense dates are stored at UTC
	// midnight, so comparing against the zoned now instant would drop
	// today's rows until local time passes the UTC offset.
	fromDay := core.DateOf(from)
	today := core.DateOf(now)
	var filtered []core.Expense
	for _, e := range all {
		if e.Date.Before(fromDay.Time) || e.Date.After(today.Time) {
			continue
		}
		filtered = append(filtered, e)
	}
	if len(filtered) == 0 {
		return s, nil
	}

	s.Count = len(filtered)
	s.Currency = modeCurrency(filtered)

	byCat := make(map[string]int64)
	var order []string
	for _, e := range filtered {
		s.Total.Cents += e.Amount.Cents
		key := canonicalKey(byCat, e.Category)
		if _, seen := byCat[key]; !seen {
			order = append(order, key)
		}
		byCat[key] += e.Amount.Cents
		if e.Amount.Cents >= a.threshold.Cents {
			s.HighValue = append(s.HighValue, e)
		}
	}

	for _, cat := range order {
		s.ByCategory = append(s.ByCategory, CategoryAmount{Category: cat, Amount: core.Money{Cents: byCat[cat]}})
	}
	sort.SliceStable(s.ByCategory, func(i, j int) bool {
		return s.ByCategory[i].Amount.Cents > s.ByCategory[j].Amount.Cents
	})
	sort.SliceStable(s.HighValue, func(i, j int) bool {
		return s.HighValue[i].Amount.Cents > s.HighValue[j].Amount.Cents
	})
	return s, nil
}

// canonicalKey folds differing casings of the same category onto the
// first-seen display form.
func canonicalKey(existing map[string]int64, category string) string {
	for k := range existing {
		if strings.EqualFold(k, category) {
			return k
		}
	}
	return category
}

// modeCurrency picks the most frequent currency code; ties break on
// first-encountered order. With mixed currencies the labeled total can
// disagree with some underlying rows, which is accepted.
func modeCurrency(expenses []core.Expense) string {
	counts := make(map[string]int)
	var order []string
	for _, e := range expenses {
		if _, seen := counts[e.Currency]; !seen {
			order = append(order, e.Currency)
		}
		counts[e.Currency]++
	}
	best := order[0]
	for _, code := range order {
		if counts[code] > counts[best] {
			best = code
		}
	}
	return best
}
