package summary

import (
	"context"
	"testing"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/ledger/memory"
)

func addExpense(t *testing.T, s *memory.Store, date core.Date, category string, cents int64, currency string) {
	t.Helper()
	_, err := s.Append(context.Background(), core.Expense{
		Date:        date,
		Amount:      core.Money{Cents: cents},
		Currency:    currency,
		Category:    category,
		Description: "test expense",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestPeriodStart(t *testing.T) {
	cases := []struct {
		name   string
		period Period
		now    time.Time
		want   string
	}{
		{"week from wednesday", PeriodWeek, time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC), "2025-03-10"},
		{"week from monday", PeriodWeek, time.Date(2025, 3, 10, 0, 5, 0, 0, time.UTC), "2025-03-10"},
		{"week from sunday", PeriodWeek, time.Date(2025, 3, 16, 23, 0, 0, 0, time.UTC), "2025-03-10"},
		{"month mid", PeriodMonth, time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC), "2025-03-01"},
		{"month first day", PeriodMonth, time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC), "2025-03-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PeriodStart(tc.period, tc.now)
			if core.DateOf(got).String() != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, core.DateOf(got))
			}
			if got.Hour() != 0 || got.Minute() != 0 {
				t.Fatalf("expected midnight boundary, got %v", got)
			}
		})
	}
}

func TestSummarizeEmptyLedger(t *testing.T) {
	agg := NewAggregator(memory.New(), core.Money{Cents: 50000}, "INR")
	now := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

	s, err := agg.Summarize(context.Background(), PeriodWeek, now)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.Total.Cents != 0 || s.Count != 0 {
		t.Fatalf("expected zero summary, got %+v", s)
	}
	if len(s.ByCategory) != 0 || len(s.HighValue) != 0 {
		t.Fatalf("expected empty breakdowns, got %+v", s)
	}
	if s.Currency != "INR" {
		t.Fatalf("empty summary should fall back to base currency, got %s", s.Currency)
	}
	if s.From.String() != "2025-03-10" || s.To.String() != "2025-03-12" {
		t.Fatalf("unexpected range %s -> %s", s.From, s.To)
	}
}

func TestSummarizeMonthScenario(t *testing.T) {
	// Three same-day entries of 100, 200, 700 INR in Food, Food,
	// Transport with a 500 threshold.
	store := memory.New()
	day := core.NewDate(2025, 3, 9)
	addExpense(t, store, day, "Food", 10000, "INR")
	addExpense(t, store, day, "Food", 20000, "INR")
	addExpense(t, store, day, "Transport", 70000, "INR")

	agg := NewAggregator(store, core.Money{Cents: 50000}, "INR")
	now := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

	s, err := agg.Summarize(context.Background(), PeriodMonth, now)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.Total.Cents != 100000 {
		t.Fatalf("total: expected 100000, got %d", s.Total.Cents)
	}
	if len(s.ByCategory) != 2 {
		t.Fatalf("expected 2 categories, got %+v", s.ByCategory)
	}
	if s.ByCategory[0].Category != "Transport" || s.ByCategory[0].Amount.Cents != 70000 {
		t.Fatalf("expected Transport first (descending), got %+v", s.ByCategory[0])
	}
	if s.ByCategory[1].Category != "Food" || s.ByCategory[1].Amount.Cents != 30000 {
		t.Fatalf("expected Food 300, got %+v", s.ByCategory[1])
	}
	if len(s.HighValue) != 1 || s.HighValue[0].Category != "Transport" || s.HighValue[0].Amount.Cents != 70000 {
		t.Fatalf("expected single 700 Transport outlier, got %+v", s.HighValue)
	}
	if s.Currency != "INR" {
		t.Fatalf("currency: got %s", s.Currency)
	}
}

func TestSummarizeFiltersOutsidePeriod(t *testing.T) {
	store := memory.New()
	addExpense(t, store, core.NewDate(2025, 3, 9), "Food", 10000, "INR")  // Sunday before
	addExpense(t, store, core.NewDate(2025, 3, 11), "Food", 20000, "INR") // in week
	addExpense(t, store, core.NewDate(2025, 3, 20), "Food", 40000, "INR") // future

	agg := NewAggregator(store, core.Money{Cents: 50000}, "INR")
	now := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

	s, err := agg.Summarize(context.Background(), PeriodWeek, now)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.Count != 1 || s.Total.Cents != 20000 {
		t.Fatalf("expected only the in-week row, got %+v", s)
	}
}

func TestSummarizeIncludesTodayInEasternZones(t *testing.T) {
	// Early morning in a UTC+5:30 zone: local date is the 12th while UTC
	// is still on the 11th. A row dated today must not be dropped.
	store := memory.New()
	addExpense(t, store, core.NewDate(2025, 3, 12), "Food", 20000, "INR")

	agg := NewAggregator(store, core.Money{Cents: 50000}, "INR")
	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2025, 3, 12, 2, 0, 0, 0, ist)

	for _, p := range []Period{PeriodWeek, PeriodMonth} {
		s, err := agg.Summarize(context.Background(), p, now)
		if err != nil {
			t.Fatalf("summarize %s: %v", p, err)
		}
		if s.Count != 1 || s.Total.Cents != 20000 {
			t.Fatalf("%s summary should include today's row, got %+v", p, s)
		}
	}
}

func TestModeCurrencyTieBreaksOnFirstSeen(t *testing.T) {
	store := memory.New()
	day := core.NewDate(2025, 3, 11)
	addExpense(t, store, day, "Travel", 10000, "USD")
	addExpense(t, store, day, "Food", 20000, "INR")

	agg := NewAggregator(store, core.Money{Cents: 5000000}, "INR")
	now := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

	s, err := agg.Summarize(context.Background(), PeriodWeek, now)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.Currency != "USD" {
		t.Fatalf("tie should break on first-encountered currency, got %s", s.Currency)
	}
}

func TestSummarizeRejectsUnknownPeriod(t *testing.T) {
	agg := NewAggregator(memory.New(), core.Money{Cents: 50000}, "INR")
	if _, err := agg.Summarize(context.Background(), Period("year"), time.Now()); err == nil {
		t.Fatal("expected error for unknown period")
	}
}
