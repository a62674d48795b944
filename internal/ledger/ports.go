// Package ledger defines the ports for the tabular ledger store and the
// row shapes shared by its adapters (Google Sheets, SQLite, memory).
package ledger

import (
	"context"
	"time"

	"spendlog/internal/core"
)

// CustomCategory is one row of the Categories table.
type CustomCategory struct {
	Name    string
	AddedOn core.Date
}

// BudgetRow is one row of the Budgets table: a monthly cap in base currency.
type BudgetRow struct {
	Category string
	Amount   core.Money
}

type (
	// ExpenseStore is the append-only expense log. EnsureSchema is
	// idempotent and safe to call before every write.
	ExpenseStore interface {
		EnsureSchema(ctx context.Context) error
		Append(ctx context.Context, e core.Expense) (rowRef string, err error)
		ListAll(ctx context.Context) ([]core.Expense, error)
		// DeleteLast removes the most recent row and returns it, or nil
		// when the ledger is empty.
		DeleteLast(ctx context.Context) (*core.Expense, error)
	}

	// CategoryStore persists user-added categories. Defaults never live
	// here; the registry owns them.
	CategoryStore interface {
		ListCustom(ctx context.Context) ([]CustomCategory, error)
		AppendCustom(ctx context.Context, name string, addedOn time.Time) error
		DeleteCustom(ctx context.Context, name string) (bool, error)
	}

	// BudgetStore persists per-category monthly caps, at most one row per
	// category (case-insensitive).
	BudgetStore interface {
		ListBudgets(ctx context.Context) ([]BudgetRow, error)
		UpsertBudget(ctx context.Context, category string, amount core.Money) error
		DeleteBudget(ctx context.Context, category string) (bool, error)
	}

	// Store is the full ledger surface a backend must provide.
	Store interface {
		ExpenseStore
		CategoryStore
		BudgetStore
	}
)
