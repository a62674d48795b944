package google

import (
	"fmt"
	"strconv"
	"strings"

	"spendlog/internal/core"
)

// expenseToRow maps an expense onto the ledger column order:
// [date, amount, currency, category, description, rawSource,
// originalCurrency, originalAmount].
func expenseToRow(e core.Expense) []any {
	row := []any{
		e.Date.String(),
		e.Amount.Float(),
		e.Currency,
		e.Category,
		e.Description,
		e.RawSource,
	}
	if e.OriginalCurrency != "" {
		row = append(row, e.OriginalCurrency, e.OriginalAmount)
	} else {
		row = append(row, "", "")
	}
	return row
}

// rowToExpense parses one data row; malformed rows report !ok and are
// skipped by callers (the list is best-effort, matching the dashboard
// behavior of the sheets API on hand-edited spreadsheets).
func rowToExpense(cols []string) (core.Expense, bool) {
	if len(cols) < 5 {
		return core.Expense{}, false
	}
	date, err := core.ParseDate(cols[0])
	if err != nil {
		return core.Expense{}, false
	}
	cents, err := core.ParseDecimalToCents(cols[1])
	if err != nil {
		return core.Expense{}, false
	}
	e := core.Expense{
		Date:        date,
		Amount:      core.Money{Cents: cents},
		Currency:    strings.ToUpper(strings.TrimSpace(cols[2])),
		Category:    strings.TrimSpace(cols[3]),
		Description: strings.TrimSpace(cols[4]),
	}
	if e.Currency == "" || e.Category == "" {
		return core.Expense{}, false
	}
	if len(cols) > 5 {
		e.RawSource = cols[5]
	}
	if len(cols) > 7 && strings.TrimSpace(cols[6]) != "" {
		e.OriginalCurrency = strings.ToUpper(strings.TrimSpace(cols[6]))
		if v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(cols[7]), ",", "."), 64); err == nil {
			e.OriginalAmount = v
		}
	}
	return e, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
