// Package google implements the ledger store on a Google Sheets
// spreadsheet with three tabs: Expenses, Categories and Budgets.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/ledger"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Config struct {
	SpreadsheetID      string
	ExpensesSheet      string
	CategoriesSheet    string
	BudgetsSheet       string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc             *gsheet.Service
	spreadsheetID   string
	expensesSheet   string
	categoriesSheet string
	budgetsSheet    string
}

var _ ledger.Store = (*Client)(nil)

var expenseHeaders = []any{
	"Date", "Amount", "Currency", "Category", "Description",
	"Raw Source", "Original Currency", "Original Amount",
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	c := &Client{
		svc:             svc,
		spreadsheetID:   cfg.SpreadsheetID,
		expensesSheet:   cfg.ExpensesSheet,
		categoriesSheet: cfg.CategoriesSheet,
		budgetsSheet:    cfg.BudgetsSheet,
	}
	if c.expensesSheet == "" {
		c.expensesSheet = "Expenses"
	}
	if c.categoriesSheet == "" {
		c.categoriesSheet = "Categories"
	}
	if c.budgetsSheet == "" {
		c.budgetsSheet = "Budgets"
	}
	return c, nil
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case cfg.ServiceAccountJSON != "":
		credentialsJSON = []byte(cfg.ServiceAccountJSON)
	case cfg.ServiceAccountFile != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// EnsureSchema creates missing tabs and header rows. It is idempotent and
// invoked defensively before every write, so it stays correct when
// multiple process instances share the spreadsheet.
func (c *Client) EnsureSchema(ctx context.Context) error {
	existing, err := c.sheetIDs(ctx)
	if err != nil {
		return err
	}

	wanted := []struct {
		name    string
		headers []any
	}{
		{c.expensesSheet, expenseHeaders},
		{c.categoriesSheet, []any{"Name", "Added On"}},
		{c.budgetsSheet, []any{"Category", "Amount"}},
	}

	var requests []*gsheet.Request
	for _, w := range wanted {
		if _, ok := existing[w.name]; !ok {
			requests = append(requests, &gsheet.Request{
				AddSheet: &gsheet.AddSheetRequest{
					Properties: &gsheet.SheetProperties{Title: w.name},
				},
			})
		}
	}
	if len(requests) > 0 {
		_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
			Requests: requests,
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%w: add missing tabs: %v", core.ErrLedgerUnavailable, err)
		}
	}

	for _, w := range wanted {
		if err := c.ensureHeader(ctx, w.name, w.headers); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) ensureHeader(ctx context.Context, sheet string, headers []any) error {
	lastCol := string(rune('A' + len(headers) - 1))
	rng := fmt.Sprintf("%s!A1:%s1", sheet, lastCol)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: read header of %s: %v", core.ErrLedgerUnavailable, sheet, err)
	}
	if len(resp.Values) > 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]any{headers}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: write header of %s: %v", core.ErrLedgerUnavailable, sheet, err)
	}
	return nil
}

func (c *Client) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	rng := fmt.Sprintf("%s!A:H", c.expensesSheet)
	vr := &gsheet.ValueRange{Values: [][]any{expenseToRow(e)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: append expense: %v", core.ErrLedgerUnavailable, err)
	}
	if resp.Updates != nil {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

func (c *Client) ListAll(ctx context.Context) ([]core.Expense, error) {
	rng := fmt.Sprintf("%s!A2:H", c.expensesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read expenses: %v", core.ErrLedgerUnavailable, err)
	}
	var out []core.Expense
	for _, row := range resp.Values {
		e, ok := rowToExpense(toStrings(row))
		if !ok {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// DeleteLast re-reads the data range and removes the concrete last row in
// the same call. A concurrent append landing in between can still shift
// the target; that race is accepted.
func (c *Client) DeleteLast(ctx context.Context) (*core.Expense, error) {
	rng := fmt.Sprintf("%s!A2:H", c.expensesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read expenses: %v", core.ErrLedgerUnavailable, err)
	}
	n := len(resp.Values)
	if n == 0 {
		return nil, nil
	}
	last, ok := rowToExpense(toStrings(resp.Values[n-1]))
	if !ok {
		return nil, fmt.Errorf("%w: last row is malformed", core.ErrLedgerUnavailable)
	}
	// Data rows start at sheet row 2, so the last one sits at 0-based
	// index n (header is index 0).
	if err := c.deleteRow(ctx, c.expensesSheet, n); err != nil {
		return nil, err
	}
	return &last, nil
}

func (c *Client) ListCustom(ctx context.Context) ([]ledger.CustomCategory, error) {
	rng := fmt.Sprintf("%s!A2:B", c.categoriesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read categories: %v", core.ErrLedgerUnavailable, err)
	}
	var out []ledger.CustomCategory
	for _, row := range resp.Values {
		cols := toStrings(row)
		if len(cols) == 0 || cols[0] == "" {
			continue
		}
		cat := ledger.CustomCategory{Name: cols[0]}
		if len(cols) > 1 {
			if d, err := core.ParseDate(cols[1]); err == nil {
				cat.AddedOn = d
			}
		}
		out = append(out, cat)
	}
	return out, nil
}

func (c *Client) AppendCustom(ctx context.Context, name string, addedOn time.Time) error {
	rng := fmt.Sprintf("%s!A:B", c.categoriesSheet)
	vr := &gsheet.ValueRange{Values: [][]any{{name, core.DateOf(addedOn).String()}}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: append category: %v", core.ErrLedgerUnavailable, err)
	}
	return nil
}

func (c *Client) DeleteCustom(ctx context.Context, name string) (bool, error) {
	rng := fmt.Sprintf("%s!A2:B", c.categoriesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("%w: read categories: %v", core.ErrLedgerUnavailable, err)
	}
	for i, row := range resp.Values {
		cols := toStrings(row)
		if len(cols) > 0 && strings.EqualFold(cols[0], name) {
			if err := c.deleteRow(ctx, c.categoriesSheet, i+1); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) ListBudgets(ctx context.Context) ([]ledger.BudgetRow, error) {
	rng := fmt.Sprintf("%s!A2:B", c.budgetsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read budgets: %v", core.ErrLedgerUnavailable, err)
	}
	var out []ledger.BudgetRow
	for _, row := range resp.Values {
		cols := toStrings(row)
		if len(cols) < 2 || cols[0] == "" {
			continue
		}
		cents, err := core.ParseDecimalToCents(cols[1])
		if err != nil {
			continue
		}
		out = append(out, ledger.BudgetRow{Category: cols[0], Amount: core.Money{Cents: cents}})
	}
	return out, nil
}

func (c *Client) UpsertBudget(ctx context.Context, category string, amount core.Money) error {
	rng := fmt.Sprintf("%s!A2:B", c.budgetsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: read budgets: %v", core.ErrLedgerUnavailable, err)
	}
	for i, row := range resp.Values {
		cols := toStrings(row)
		if len(cols) > 0 && strings.EqualFold(cols[0], category) {
			// Keep the stored display casing from the existing row.
			target := fmt.Sprintf("%s!A%d:B%d", c.budgetsSheet, i+2, i+2)
			vr := &gsheet.ValueRange{Values: [][]any{{cols[0], amount.Float()}}}
			_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target, vr).
				ValueInputOption("USER_ENTERED").Context(ctx).Do()
			if err != nil {
				return fmt.Errorf("%w: update budget: %v", core.ErrLedgerUnavailable, err)
			}
			return nil
		}
	}
	vr := &gsheet.ValueRange{Values: [][]any{{category, amount.Float()}}}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("%s!A:B", c.budgetsSheet), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: append budget: %v", core.ErrLedgerUnavailable, err)
	}
	return nil
}

func (c *Client) DeleteBudget(ctx context.Context, category string) (bool, error) {
	rng := fmt.Sprintf("%s!A2:B", c.budgetsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("%w: read budgets: %v", core.ErrLedgerUnavailable, err)
	}
	for i, row := range resp.Values {
		cols := toStrings(row)
		if len(cols) > 0 && strings.EqualFold(cols[0], category) {
			if err := c.deleteRow(ctx, c.budgetsSheet, i+1); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// deleteRow removes a single 0-based row from the named tab.
func (c *Client) deleteRow(ctx context.Context, sheet string, rowIndex int) error {
	ids, err := c.sheetIDs(ctx)
	if err != nil {
		return err
	}
	sheetID, ok := ids[sheet]
	if !ok {
		return fmt.Errorf("%w: tab %q not found", core.ErrLedgerUnavailable, sheet)
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowIndex),
					EndIndex:   int64(rowIndex + 1),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: delete row %d of %s: %v", core.ErrLedgerUnavailable, rowIndex, sheet, err)
	}
	return nil
}

func (c *Client) sheetIDs(ctx context.Context) (map[string]int64, error) {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read spreadsheet metadata: %v", core.ErrLedgerUnavailable, err)
	}
	ids := make(map[string]int64, len(meta.Sheets))
	for _, s := range meta.Sheets {
		if s.Properties != nil {
			ids[s.Properties.Title] = s.Properties.SheetId
		}
	}
	return ids, nil
}
