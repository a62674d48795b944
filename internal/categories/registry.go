// Package categories maintains the mutable universe of valid expense
// categories: a fixed default set plus user-added custom names persisted
// in the ledger's Categories table.
package categories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/ledger"
)

// Defaults is the fixed, non-removable category set. "Other" is the
// fallback used when extraction cannot pick a better fit.
var Defaults = []string{
	"Food", "Transport", "Shopping", "Bills", "Entertainment",
	"Health", "Education", "Travel", "Groceries", "Other",
}

// FallbackCategory absorbs everything extraction cannot place.
const FallbackCategory = "Other"

// Snapshot is the registry state at a point in time. Extraction fetches a
// fresh one per invocation; it is never cached across pipeline runs.
type Snapshot struct {
	Defaults []string
	Custom   []string
	All      []string
}

// Contains reports case-insensitive membership.
func (s Snapshot) Contains(name string) bool {
	for _, c := range s.All {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// Canonical returns the stored display form for name, or the fallback
// category when name is not in the snapshot.
func (s Snapshot) Canonical(name string) string {
	for _, c := range s.All {
		if strings.EqualFold(c, strings.TrimSpace(name)) {
			return c
		}
	}
	return FallbackCategory
}

type Registry struct {
	store ledger.CategoryStore
	now   func() time.Time
}

func NewRegistry(store ledger.CategoryStore) *Registry {
	return &Registry{store: store, now: time.Now}
}

// List returns the current snapshot: defaults, then custom names in the
// order they were added.
func (r *Registry) List(ctx context.Context) (Snapshot, error) {
	custom, err := r.store.ListCustom(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list custom categories: %w", err)
	}
	s := Snapshot{Defaults: append([]string(nil), Defaults...)}
	for _, c := range custom {
		s.Custom = append(s.Custom, c.Name)
	}
	s.All = append(append([]string(nil), s.Defaults...), s.Custom...)
	return s, nil
}

// Add registers a custom category. It returns false without mutation when
// the name (any casing) already exists among defaults or custom entries.
// The originally-added casing is preserved for display.
func (r *Registry) Add(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, core.ErrCategoryNotFound
	}
	snap, err := r.List(ctx)
	if err != nil {
		return false, err
	}
	if snap.Contains(name) {
		return false, nil
	}
	if err := r.store.AppendCustom(ctx, name, r.now()); err != nil {
		return false, fmt.Errorf("append custom category: %w", err)
	}
	return true, nil
}

// Remove deletes a custom category. Defaults are never removable and
// report false, as does a name that was never added.
func (r *Registry) Remove(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	for _, d := range Defaults {
		if strings.EqualFold(d, name) {
			return false, nil
		}
	}
	ok, err := r.store.DeleteCustom(ctx, name)
	if err != nil {
		return false, fmt.Errorf("delete custom category: %w", err)
	}
	return ok, nil
}
