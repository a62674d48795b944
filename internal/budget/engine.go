// Package budget tracks per-category monthly caps and evaluates
// utilization against the ledger.
package budget

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/ledger"
)

type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusExceeded Status = "exceeded"
)

// warningRatio is the utilization at which a budget starts warning.
const warningRatio = 0.80

type Evaluation struct {
	Status  Status
	PctUsed int
}

// Alert is raised right after an expense write when the filed category's
// budget is in warning or exceeded state.
type Alert struct {
	Category string
	Budget   core.Money
	Spend    core.Money
	Evaluation
}

type Engine struct {
	budgets  ledger.BudgetStore
	expenses ledger.ExpenseStore
}

func NewEngine(budgets ledger.BudgetStore, expenses ledger.ExpenseStore) *Engine {
	return &Engine{budgets: budgets, expenses: expenses}
}

// Set upserts the monthly cap for a category. Amounts must be positive.
func (e *Engine) Set(ctx context.Context, category string, amount core.Money) error {
	if amount.Cents <= 0 {
		return core.ErrInvalidBudgetAmount
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return core.ErrCategoryNotFound
	}
	if err := e.budgets.UpsertBudget(ctx, category, amount); err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (e *Engine) Remove(ctx context.Context, category string) (bool, error) {
	ok, err := e.budgets.DeleteBudget(ctx, strings.TrimSpace(category))
	if err != nil {
		return false, fmt.Errorf("delete budget: %w", err)
	}
	return ok, nil
}

func (e *Engine) List(ctx context.Context) ([]ledger.BudgetRow, error) {
	rows, err := e.budgets.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return rows, nil
}

// MonthlySpend sums ledger amounts per category for the calendar month
// containing now. Keys carry the display casing of the first row seen.
func (e *Engine) MonthlySpend(ctx context.Context, now time.Time) (map[string]core.Money, error) {
	all, err := e.expenses.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	spend := make(map[string]core.Money)
	display := make(map[string]string)
	for _, exp := range all {
		if exp.Date.Year() != now.Year() || exp.Date.Month() != now.Month() {
			continue
		}
		key := strings.ToLower(exp.Category)
		if _, ok := display[key]; !ok {
			display[key] = exp.Category
		}
		cur := spend[display[key]]
		cur.Cents += exp.Amount.Cents
		spend[display[key]] = cur
	}
	return spend, nil
}

// Evaluate classifies spend against a budget: exceeded when spend >=
// budget, warning from 80% utilization, otherwise ok. PctUsed is rounded
// to the nearest integer for display.
func Evaluate(budget, spend core.Money) Evaluation {
	// Set rejects non-positive caps, but a hand-edited store row can
	// still carry one; treat it as exceeded instead of dividing by zero.
	if budget.Cents <= 0 {
		return Evaluation{Status: StatusExceeded, PctUsed: 100}
	}
	pct := int(math.Round(float64(spend.Cents) / float64(budget.Cents) * 100))
	switch {
	case spend.Cents >= budget.Cents:
		return Evaluation{Status: StatusExceeded, PctUsed: pct}
	case float64(spend.Cents) >= warningRatio*float64(budget.Cents):
		return Evaluation{Status: StatusWarning, PctUsed: pct}
	default:
		return Evaluation{Status: StatusOK, PctUsed: pct}
	}
}

// CheckAfterWrite evaluates the budget of the category the expense was
// just filed under. It returns nil when the category has no budget or is
// comfortably within it. Other categories are never re-evaluated here.
func (e *Engine) CheckAfterWrite(ctx context.Context, exp core.Expense, now time.Time) (*Alert, error) {
	rows, err := e.budgets.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	var budgetRow *ledger.BudgetRow
	for i := range rows {
		if strings.EqualFold(rows[i].Category, exp.Category) {
			budgetRow = &rows[i]
			break
		}
	}
	if budgetRow == nil {
		return nil, nil
	}

	spend, err := e.MonthlySpend(ctx, now)
	if err != nil {
		return nil, err
	}
	var monthSpend core.Money
	for cat, amt := range spend {
		if strings.EqualFold(cat, exp.Category) {
			monthSpend = amt
			break
		}
	}

	eval := Evaluate(budgetRow.Amount, monthSpend)
	if eval.Status == StatusOK {
		return nil, nil
	}
	return &Alert{
		Category:   budgetRow.Category,
		Budget:     budgetRow.Amount,
		Spend:      monthSpend,
		Evaluation: eval,
	}, nil
}
