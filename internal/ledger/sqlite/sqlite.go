// Package sqlite implements the ledger store on a local SQLite database.
// It is the offline-friendly alternative to the sheets backend and shares
// its semantics: append-only expense log, LIFO delete-last, one budget
// row per category.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/ledger"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db     *sql.DB
	dbPath string
}

var _ ledger.Store = (*Repository)(nil)

func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	repo := &Repository{db: db, dbPath: dbPath}
	if err := repo.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// EnsureSchema runs migrations; golang-migrate tracks applied versions so
// repeated calls are no-ops.
func (r *Repository) EnsureSchema(_ context.Context) error {
	if err := runMigrations(r.dbPath); err != nil {
		return fmt.Errorf("%w: %v", core.ErrLedgerUnavailable, err)
	}
	return nil
}

func (r *Repository) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (date, amount_cents, currency, category, description, raw_source, original_currency, original_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Date.String(), e.Amount.Cents, e.Currency, e.Category, e.Description,
		e.RawSource, e.OriginalCurrency, e.OriginalAmount)
	if err != nil {
		return "", fmt.Errorf("%w: insert expense: %v", core.ErrLedgerUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("%w: last insert id: %v", core.ErrLedgerUnavailable, err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (r *Repository) ListAll(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, amount_cents, currency, category, description, raw_source, original_currency, original_amount
		FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query expenses: %v", core.ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan expense: %v", core.ErrLedgerUnavailable, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate expenses: %v", core.ErrLedgerUnavailable, err)
	}
	return out, nil
}

func (r *Repository) DeleteLast(ctx context.Context) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, date, amount_cents, currency, category, description, raw_source, original_currency, original_amount
		FROM expenses ORDER BY id DESC LIMIT 1`)

	var id int64
	var dateStr, currency, category, description, rawSource, origCurrency string
	var cents int64
	var origAmount float64
	err := row.Scan(&id, &dateStr, &cents, &currency, &category, &description, &rawSource, &origCurrency, &origAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read last expense: %v", core.ErrLedgerUnavailable, err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("%w: delete expense %d: %v", core.ErrLedgerUnavailable, id, err)
	}

	date, perr := core.ParseDate(dateStr)
	if perr != nil {
		return nil, fmt.Errorf("%w: stored date malformed: %v", core.ErrLedgerUnavailable, perr)
	}
	return &core.Expense{
		Date:             date,
		Amount:           core.Money{Cents: cents},
		Currency:         currency,
		Category:         category,
		Description:      description,
		RawSource:        rawSource,
		OriginalCurrency: origCurrency,
		OriginalAmount:   origAmount,
	}, nil
}

func (r *Repository) ListCustom(ctx context.Context) ([]ledger.CustomCategory, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, added_on FROM categories ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("%w: query categories: %v", core.ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	var out []ledger.CustomCategory
	for rows.Next() {
		var name, addedOn string
		if err := rows.Scan(&name, &addedOn); err != nil {
			return nil, fmt.Errorf("%w: scan category: %v", core.ErrLedgerUnavailable, err)
		}
		cat := ledger.CustomCategory{Name: name}
		if d, perr := core.ParseDate(addedOn); perr == nil {
			cat.AddedOn = d
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (r *Repository) AppendCustom(ctx context.Context, name string, addedOn time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO categories (name, added_on) VALUES (?, ?)`,
		name, core.DateOf(addedOn).String())
	if err != nil {
		return fmt.Errorf("%w: insert category: %v", core.ErrLedgerUnavailable, err)
	}
	return nil
}

func (r *Repository) DeleteCustom(ctx context.Context, name string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE name = ? COLLATE NOCASE`, name)
	if err != nil {
		return false, fmt.Errorf("%w: delete category: %v", core.ErrLedgerUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected: %v", core.ErrLedgerUnavailable, err)
	}
	return n > 0, nil
}

func (r *Repository) ListBudgets(ctx context.Context) ([]ledger.BudgetRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, amount_cents FROM budgets ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("%w: query budgets: %v", core.ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	var out []ledger.BudgetRow
	for rows.Next() {
		var category string
		var cents int64
		if err := rows.Scan(&category, &cents); err != nil {
			return nil, fmt.Errorf("%w: scan budget: %v", core.ErrLedgerUnavailable, err)
		}
		out = append(out, ledger.BudgetRow{Category: category, Amount: core.Money{Cents: cents}})
	}
	return out, rows.Err()
}

func (r *Repository) UpsertBudget(ctx context.Context, category string, amount core.Money) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (category, amount_cents) VALUES (?, ?)
		ON CONFLICT(category) DO UPDATE SET amount_cents = excluded.amount_cents`,
		category, amount.Cents)
	if err != nil {
		return fmt.Errorf("%w: upsert budget: %v", core.ErrLedgerUnavailable, err)
	}
	return nil
}

func (r *Repository) DeleteBudget(ctx context.Context, category string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE category = ? COLLATE NOCASE`, category)
	if err != nil {
		return false, fmt.Errorf("%w: delete budget: %v", core.ErrLedgerUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected: %v", core.ErrLedgerUnavailable, err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(rs rowScanner) (core.Expense, error) {
	var dateStr, currency, category, description, rawSource, origCurrency string
	var cents int64
	var origAmount float64
	if err := rs.Scan(&dateStr, &cents, &currency, &category, &description, &rawSource, &origCurrency, &origAmount); err != nil {
		return core.Expense{}, err
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		Date:             date,
		Amount:           core.Money{Cents: cents},
		Currency:         currency,
		Category:         category,
		Description:      description,
		RawSource:        rawSource,
		OriginalCurrency: origCurrency,
		OriginalAmount:   origAmount,
	}, nil
}
