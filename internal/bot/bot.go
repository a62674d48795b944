// Package bot is the Telegram transport: it receives webhook updates,
// dispatches commands and renders pipeline outcomes back into chat.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"spendlog/internal/budget"
	"spendlog/internal/categories"
	"spendlog/internal/chart"
	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/services"
	"spendlog/internal/summary"
	"spendlog/internal/telegram"
)

type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
}

type ChartRenderer interface {
	DoughnutURL(ctx context.Context, s summary.Summary) (string, error)
}

type Bot struct {
	sender     Sender
	pipeline   *services.Pipeline
	registry   *categories.Registry
	budgets    *budget.Engine
	aggregator *summary.Aggregator
	charts     ChartRenderer
	base       string
	logger     *log.Logger
	now        func() time.Time
}

func New(
	sender Sender,
	pipeline *services.Pipeline,
	registry *categories.Registry,
	budgets *budget.Engine,
	aggregator *summary.Aggregator,
	charts ChartRenderer,
	baseCurrency string,
	location *time.Location,
	logger *log.Logger,
) *Bot {
	if location == nil {
		location = time.UTC
	}
	return &Bot{
		sender:     sender,
		pipeline:   pipeline,
		registry:   registry,
		budgets:    budgets,
		aggregator: aggregator,
		charts:     charts,
		base:       baseCurrency,
		logger:     logger.WithComponent("bot"),
		// Summaries and budget views use the same zone as the
		// scheduler, so /week and the Saturday push agree on
		// period boundaries.
		now: func() time.Time { return time.Now().In(location) },
	}
}

// WebhookHandler decodes Telegram updates. The update is handled before
// returning 200 so Telegram retries on our failures.
func (b *Bot) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update telegram.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			b.logger.WarnContext(r.Context(), "malformed webhook payload", "error", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		b.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	switch {
	case msg.Voice != nil:
		b.handleVoice(ctx, chatID, msg.Voice)
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, chatID, msg)
	case strings.HasPrefix(msg.Text, "/"):
		b.handleCommand(ctx, chatID, msg.Text)
	case strings.TrimSpace(msg.Text) != "":
		b.handleText(ctx, chatID, msg.Text)
	}
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, text string) {
	fields := strings.Fields(text)
	cmd := strings.ToLower(strings.TrimSuffix(fields[0], "@"+botCommandSuffix(fields[0])))
	args := fields[1:]

	switch cmd {
	case "/start", "/help":
		b.send(ctx, chatID, helpText)
	case "/week":
		b.sendSummary(ctx, chatID, summary.PeriodWeek)
	case "/month":
		b.sendSummary(ctx, chatID, summary.PeriodMonth)
	case "/chart":
		b.sendChart(ctx, chatID, periodFromArgs(args))
	case "/undo":
		b.handleUndo(ctx, chatID)
	case "/categories":
		b.sendCategories(ctx, chatID)
	case "/addcategory":
		b.handleAddCategory(ctx, chatID, args)
	case "/removecategory":
		b.handleRemoveCategory(ctx, chatID, args)
	case "/budgets":
		b.sendBudgets(ctx, chatID)
	case "/setbudget":
		b.handleSetBudget(ctx, chatID, args)
	case "/removebudget":
		b.handleRemoveBudget(ctx, chatID, args)
	default:
		b.send(ctx, chatID, "Unknown command. Try /help.")
	}
}

// botCommandSuffix strips the "@BotName" suffix Telegram appends in
// groups.
func botCommandSuffix(cmd string) string {
	if i := strings.Index(cmd, "@"); i != -1 {
		return cmd[i+1:]
	}
	return ""
}

func (b *Bot) handleText(ctx context.Context, chatID int64, text string) {
	out, err := b.pipeline.ProcessText(ctx, chatID, text)
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	b.sendOutcome(ctx, chatID, out)
}

func (b *Bot) handleVoice(ctx context.Context, chatID int64, voice *telegram.Voice) {
	progressID, _ := b.sender.SendMessage(ctx, chatID, "🎙 Transcribing...")

	audio, filePath, err := b.sender.DownloadFile(ctx, voice.FileID)
	if err != nil {
		b.editOrSend(ctx, chatID, progressID, "Couldn't download that voice note, please try again.")
		b.logger.WarnContext(ctx, "voice download failed", "error", err)
		return
	}

	out, err := b.pipeline.ProcessVoice(ctx, chatID, audio, path.Base(filePath))
	if err != nil {
		b.editOrSend(ctx, chatID, progressID, errorText(err))
		return
	}
	b.editOrSend(ctx, chatID, progressID, b.outcomeText(out))
	b.sendAlert(ctx, chatID, out)
}

func (b *Bot) handlePhoto(ctx context.Context, chatID int64, msg *telegram.Message) {
	progressID, _ := b.sender.SendMessage(ctx, chatID, "🧾 Reading receipt...")

	photo := msg.LargestPhoto()
	image, _, err := b.sender.DownloadFile(ctx, photo.FileID)
	if err != nil {
		b.editOrSend(ctx, chatID, progressID, "Couldn't download that photo, please try again.")
		b.logger.WarnContext(ctx, "photo download failed", "error", err)
		return
	}

	out, err := b.pipeline.ProcessImage(ctx, chatID, image, "image/jpeg")
	if err != nil {
		b.editOrSend(ctx, chatID, progressID, errorText(err))
		return
	}
	b.editOrSend(ctx, chatID, progressID, b.outcomeText(out))
	b.sendAlert(ctx, chatID, out)
}

func (b *Bot) sendOutcome(ctx context.Context, chatID int64, out services.Outcome) {
	b.send(ctx, chatID, b.outcomeText(out))
	b.sendAlert(ctx, chatID, out)
}

func (b *Bot) outcomeText(out services.Outcome) string {
	switch {
	case out.Pending:
		return formatClarification(out.Missing)
	case out.Expense != nil:
		text := formatExpenseLogged(out.Expense, b.base)
		if out.Transcript != "" {
			text = fmt.Sprintf("_Heard: %s_\n\n%s", out.Transcript, text)
		}
		return text
	default:
		return formatDiscarded()
	}
}

func (b *Bot) sendAlert(ctx context.Context, chatID int64, out services.Outcome) {
	if out.Alert != nil {
		b.send(ctx, chatID, formatAlert(out.Alert, b.base))
	}
}

func (b *Bot) sendSummary(ctx context.Context, chatID int64, p summary.Period) {
	s, err := b.aggregator.Summarize(ctx, p, b.now())
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	b.send(ctx, chatID, formatSummary(s))
}

// periodFromArgs reads an optional week/month argument, defaulting to
// month.
func periodFromArgs(args []string) summary.Period {
	if len(args) > 0 && strings.EqualFold(args[0], string(summary.PeriodWeek)) {
		return summary.PeriodWeek
	}
	return summary.PeriodMonth
}

func (b *Bot) sendChart(ctx context.Context, chatID int64, p summary.Period) {
	s, err := b.aggregator.Summarize(ctx, p, b.now())
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	if s.Count == 0 {
		b.send(ctx, chatID, fmt.Sprintf("No expenses this %s, nothing to chart.", p))
		return
	}
	url, err := b.charts.DoughnutURL(ctx, s)
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	caption := fmt.Sprintf("Spending by category, %s to %s", s.From, s.To)
	if err := b.sender.SendPhoto(ctx, chatID, url, caption); err != nil {
		b.logger.WarnContext(ctx, "send chart failed", "error", err)
		b.send(ctx, chatID, "Couldn't deliver the chart, please try again.")
	}
}

func (b *Bot) handleUndo(ctx context.Context, chatID int64) {
	exp, err := b.pipeline.UndoLast(ctx)
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	b.send(ctx, chatID, formatUndo(exp, b.base))
}

func (b *Bot) sendCategories(ctx context.Context, chatID int64) {
	snap, err := b.registry.List(ctx)
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	b.send(ctx, chatID, formatCategories(snap))
}

func (b *Bot) handleAddCategory(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		b.send(ctx, chatID, "Usage: /addcategory <name>")
		return
	}
	name := strings.Join(args, " ")
	ok, err := b.registry.Add(ctx, name)
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	if !ok {
		b.send(ctx, chatID, fmt.Sprintf("Category *%s* already exists.", name))
		return
	}
	b.send(ctx, chatID, fmt.Sprintf("Added category *%s*.", name))
}

func (b *Bot) handleRemoveCategory(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		b.send(ctx, chatID, "Usage: /removecategory <name>")
		return
	}
	name := strings.Join(args, " ")
	ok, err := b.registry.Remove(ctx, name)
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	if !ok {
		b.send(ctx, chatID, fmt.Sprintf("*%s* is not a removable custom category.", name))
		return
	}
	b.send(ctx, chatID, fmt.Sprintf("Removed category *%s*.", name))
}

func (b *Bot) sendBudgets(ctx context.Context, chatID int64) {
	rows, err := b.budgets.List(ctx)
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	spend, err := b.budgets.MonthlySpend(ctx, b.now())
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	b.send(ctx, chatID, formatBudgets(rows, spend, b.base))
}

func (b *Bot) handleSetBudget(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		b.send(ctx, chatID, "Usage: /setbudget <category> <amount>")
		return
	}
	category := strings.Join(args[:len(args)-1], " ")
	cents, err := core.ParseDecimalToCents(args[len(args)-1])
	if err != nil {
		b.send(ctx, chatID, "That amount doesn't look right. Usage: /setbudget <category> <amount>")
		return
	}
	amount := core.Money{Cents: cents}
	if err := b.budgets.Set(ctx, category, amount); err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	b.send(ctx, chatID, fmt.Sprintf("Budget for *%s* set to %s per month.", category, core.FormatAmount(b.base, amount)))
}

func (b *Bot) handleRemoveBudget(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		b.send(ctx, chatID, "Usage: /removebudget <category>")
		return
	}
	category := strings.Join(args, " ")
	ok, err := b.budgets.Remove(ctx, category)
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	if !ok {
		b.send(ctx, chatID, fmt.Sprintf("No budget set for *%s*.", category))
		return
	}
	b.send(ctx, chatID, fmt.Sprintf("Removed budget for *%s*.", category))
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if _, err := b.sender.SendMessage(ctx, chatID, text); err != nil {
		b.logger.WarnContext(ctx, "send message failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) editOrSend(ctx context.Context, chatID int64, messageID int, text string) {
	if messageID == 0 {
		b.send(ctx, chatID, text)
		return
	}
	if err := b.sender.EditMessageText(ctx, chatID, messageID, text); err != nil {
		b.logger.WarnContext(ctx, "edit message failed", "chat_id", chatID, "error", err)
		b.send(ctx, chatID, text)
	}
}

func (b *Bot) sendError(ctx context.Context, chatID int64, err error) {
	b.logger.ErrorContext(ctx, "handler failed", "chat_id", chatID, "error", err)
	b.send(ctx, chatID, errorText(err))
}

// errorText maps pipeline failures to user-facing messages without
// leaking internals.
func errorText(err error) string {
	switch {
	case errors.Is(err, core.ErrTranscriptionFailed):
		return "I couldn't understand that voice note. Please try again or type the expense."
	case errors.Is(err, core.ErrExtractionFailed):
		return "I couldn't work out an expense from that. Try something like \"700 on groceries\"."
	case errors.Is(err, core.ErrConversionUnavailable):
		return "Currency conversion is unavailable right now, so I didn't log anything. Please try again later."
	case errors.Is(err, core.ErrInvalidBudgetAmount):
		return "Budget amounts must be positive numbers."
	case errors.Is(err, core.ErrLedgerUnavailable):
		return "The ledger is unreachable right now. Please try again in a moment."
	case errors.Is(err, core.ErrChartRenderFailed):
		return "Couldn't render the chart, please try again later."
	default:
		return "Something went wrong, please try again."
	}
}

var _ ChartRenderer = (*chart.Renderer)(nil)
