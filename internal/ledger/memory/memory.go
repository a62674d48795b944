// Package memory is an in-process ledger backend used for development and
// tests. It mirrors the semantics of the sheets backend, including the
// idempotent EnsureSchema and LIFO DeleteLast.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/ledger"
)

type Store struct {
	mu          sync.Mutex
	initialized bool
	expenses    []core.Expense
	categories  []ledger.CustomCategory
	budgets     []ledger.BudgetRow
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// EnsureSchema is a no-op beyond marking the store ready; calling it twice
// never duplicates anything.
func (s *Store) EnsureSchema(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}

func (s *Store) Append(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, e)
	return fmt.Sprintf("mem:%d", len(s.expenses)), nil
}

func (s *Store) ListAll(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, len(s.expenses))
	copy(out, s.expenses)
	return out, nil
}

func (s *Store) DeleteLast(_ context.Context) (*core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.expenses) == 0 {
		return nil, nil
	}
	last := s.expenses[len(s.expenses)-1]
	s.expenses = s.expenses[:len(s.expenses)-1]
	return &last, nil
}

func (s *Store) ListCustom(_ context.Context) ([]ledger.CustomCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.CustomCategory, len(s.categories))
	copy(out, s.categories)
	return out, nil
}

func (s *Store) AppendCustom(_ context.Context, name string, addedOn time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, ledger.CustomCategory{
		Name:    name,
		AddedOn: core.DateOf(addedOn),
	})
	return nil
}

func (s *Store) DeleteCustom(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListBudgets(_ context.Context) ([]ledger.BudgetRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.BudgetRow, len(s.budgets))
	copy(out, s.budgets)
	return out, nil
}

func (s *Store) UpsertBudget(_ context.Context, category string, amount core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.budgets {
		if strings.EqualFold(b.Category, category) {
			s.budgets[i].Amount = amount
			return nil
		}
	}
	s.budgets = append(s.budgets, ledger.BudgetRow{Category: category, Amount: amount})
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, category string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.budgets {
		if strings.EqualFold(b.Category, category) {
			s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
