package bot

import (
	"fmt"
	"strings"

	"spendlog/internal/budget"
	"spendlog/internal/categories"
	"spendlog/internal/core"
	"spendlog/internal/ledger"
	"spendlog/internal/summary"
)

const helpText = `*Spendlog* keeps your expense ledger from chat.

Just tell me what you spent, by text, voice note or receipt photo:
_"700 on a cab to the airport"_

Commands:
/week - summary for the current week
/month - summary for the current month
/chart - spending chart for the current month
/undo - remove the last logged expense
/categories - list available categories
/addcategory <name> - add a custom category
/removecategory <name> - remove a custom category
/budgets - show monthly budgets and usage
/setbudget <category> <amount> - set a monthly cap
/removebudget <category> - remove a cap`

func formatExpenseLogged(exp *core.Expense, base string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Logged %s for *%s* (%s)",
		core.FormatAmount(base, exp.Amount), exp.Description, exp.Category)
	if exp.OriginalCurrency != "" {
		fmt.Fprintf(&b, "\n_%.2f %s converted_", exp.OriginalAmount, exp.OriginalCurrency)
	}
	fmt.Fprintf(&b, "\n%s", exp.Date.String())
	return b.String()
}

func formatAlert(a *budget.Alert, base string) string {
	switch a.Status {
	case budget.StatusExceeded:
		return fmt.Sprintf("🚨 *%s* budget exceeded: %s of %s (%d%%)",
			a.Category, core.FormatAmount(base, a.Spend), core.FormatAmount(base, a.Budget), a.PctUsed)
	default:
		return fmt.Sprintf("⚠️ *%s* budget at %d%%: %s of %s",
			a.Category, a.PctUsed, core.FormatAmount(base, a.Spend), core.FormatAmount(base, a.Budget))
	}
}

func formatClarification(missing []string) string {
	switch {
	case len(missing) == 1 && missing[0] == "amount":
		return "How much did you spend?"
	case len(missing) == 1 && missing[0] == "description":
		return "What was this expense for?"
	default:
		return "I need a bit more: how much, and what was it for?"
	}
}

func formatDiscarded() string {
	return "I still couldn't make sense of that, so I dropped it. Please send the expense again in one message."
}

// ScheduledSummaryText renders a summary for scheduled push delivery.
func ScheduledSummaryText(s summary.Summary) string {
	return formatSummary(s)
}

func titlePeriod(p summary.Period) string {
	s := string(p)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatSummary(s summary.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s summary* (%s to %s)\n", titlePeriod(s.Period), s.From, s.To)
	if s.Count == 0 {
		b.WriteString("No expenses logged yet.")
		return b.String()
	}
	fmt.Fprintf(&b, "Total: %s across %d expenses\n", core.FormatAmount(s.Currency, s.Total), s.Count)

	b.WriteString("\n*By category:*\n")
	for _, ca := range s.ByCategory {
		fmt.Fprintf(&b, "  %s: %s\n", ca.Category, core.FormatAmount(s.Currency, ca.Amount))
	}

	if len(s.HighValue) > 0 {
		b.WriteString("\n*High-value expenses:*\n")
		for _, e := range s.HighValue {
			fmt.Fprintf(&b, "  %s - %s (%s)\n", core.FormatAmount(s.Currency, e.Amount), e.Description, e.Date)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatCategories(snap categories.Snapshot) string {
	var b strings.Builder
	b.WriteString("*Default categories:*\n")
	b.WriteString(strings.Join(snap.Defaults, ", "))
	if len(snap.Custom) > 0 {
		b.WriteString("\n\n*Custom categories:*\n")
		b.WriteString(strings.Join(snap.Custom, ", "))
	}
	return b.String()
}

func formatBudgets(rows []ledger.BudgetRow, spend map[string]core.Money, base string) string {
	if len(rows) == 0 {
		return "No budgets set. Use /setbudget <category> <amount>."
	}
	var b strings.Builder
	b.WriteString("*Monthly budgets:*\n")
	for _, row := range rows {
		var used core.Money
		for cat, amt := range spend {
			if strings.EqualFold(cat, row.Category) {
				used = amt
				break
			}
		}
		eval := budget.Evaluate(row.Amount, used)
		icon := ""
		switch eval.Status {
		case budget.StatusWarning:
			icon = " ⚠️"
		case budget.StatusExceeded:
			icon = " 🚨"
		}
		fmt.Fprintf(&b, "  %s: %s of %s (%d%%)%s\n",
			row.Category, core.FormatAmount(base, used), core.FormatAmount(base, row.Amount), eval.PctUsed, icon)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatUndo(exp *core.Expense, base string) string {
	if exp == nil {
		return "Nothing to undo, the ledger is empty."
	}
	return fmt.Sprintf("Removed %s for *%s* (%s, %s)",
		core.FormatAmount(base, exp.Amount), exp.Description, exp.Category, exp.Date)
}
