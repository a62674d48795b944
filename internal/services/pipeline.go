// Package services orchestrates the logging pipeline: input normalization,
// extraction, clarification, currency conversion, persistence and the
// post-write budget check.
package services

import (
	"context"
	"fmt"
	"time"

	"spendlog/internal/amqp"
	"spendlog/internal/budget"
	"spendlog/internal/categories"
	"spendlog/internal/core"
	"spendlog/internal/currency"
	"spendlog/internal/ledger"
	"spendlog/internal/log"
	"spendlog/internal/sessions"
)

type Extractor interface {
	FromText(ctx context.Context, transcript string, cats categories.Snapshot, now time.Time) (core.Candidate, error)
	FromImage(ctx context.Context, image []byte, mimeType string, cats categories.Snapshot, now time.Time) (core.Candidate, error)
	Clarify(ctx context.Context, original core.Candidate, followUp string, cats categories.Snapshot, now time.Time) (core.Candidate, error)
}

type Converter interface {
	ToBase(ctx context.Context, amount float64, code string, date core.Date) (currency.Conversion, error)
	BaseCurrency() string
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, event string, exp core.Expense) error
}

// Outcome is what a processing call hands back to the transport layer.
// Exactly one of Expense or Missing is meaningful: either the expense was
// persisted, or a follow-up question is pending.
type Outcome struct {
	Expense    *core.Expense
	Alert      *budget.Alert
	Transcript string
	Pending    bool
	Missing    []string
}

type Pipeline struct {
	transcriber Transcriber
	extractor   Extractor
	converter   Converter
	store       ledger.Store
	registry    *categories.Registry
	budgets     *budget.Engine
	events      EventPublisher
	sessions    *sessions.Store
	logger      *log.Logger
	now         func() time.Time
}

func NewPipeline(
	transcriber Transcriber,
	extractor Extractor,
	converter Converter,
	store ledger.Store,
	registry *categories.Registry,
	budgets *budget.Engine,
	events EventPublisher,
	logger *log.Logger,
) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		extractor:   extractor,
		converter:   converter,
		store:       store,
		registry:    registry,
		budgets:     budgets,
		events:      events,
		sessions:    sessions.NewStore(),
		logger:      logger.WithComponent("pipeline"),
		now:         time.Now,
	}
}

// WithClock overrides the pipeline clock. Tests pin it so period math
// stays stable.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// HasPending reports whether the chat is mid-clarification, in which case
// the next text message is the follow-up answer, not a new expense.
func (p *Pipeline) HasPending(chatID int64) bool {
	return p.sessions.Has(chatID)
}

// ProcessVoice transcribes a voice note and runs the text flow on the
// transcript. The transcript comes back in the outcome so the bot can
// echo what it understood.
func (p *Pipeline) ProcessVoice(ctx context.Context, chatID int64, audio []byte, filename string) (Outcome, error) {
	transcript, err := p.transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		return Outcome{}, err
	}
	out, err := p.ProcessText(ctx, chatID, transcript)
	out.Transcript = transcript
	return out, err
}

// ProcessText extracts a candidate from typed or transcribed text. An
// incomplete candidate parks the chat in clarification instead of
// persisting anything.
func (p *Pipeline) ProcessText(ctx context.Context, chatID int64, text string) (Outcome, error) {
	if pending, ok := p.sessions.Take(chatID); ok {
		return p.resolveClarification(ctx, chatID, pending, text)
	}

	cats, err := p.registry.List(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("list categories: %w", err)
	}
	cand, err := p.extractor.FromText(ctx, text, cats, p.now())
	if err != nil {
		return Outcome{}, err
	}
	if cand.NeedsClarification() {
		missing := cand.MissingFields()
		p.sessions.Put(chatID, sessions.Pending{Candidate: cand, Missing: missing, AskedAt: p.now()})
		p.logger.InfoContext(ctx, "candidate incomplete, asking follow-up", "chat_id", chatID, "missing", missing)
		return Outcome{Pending: true, Missing: missing}, nil
	}
	return p.persist(ctx, cand)
}

// ProcessImage extracts a candidate from a receipt photo. Image
// extraction always best-guesses an amount, but a missing description
// still triggers the clarification protocol.
func (p *Pipeline) ProcessImage(ctx context.Context, chatID int64, image []byte, mimeType string) (Outcome, error) {
	cats, err := p.registry.List(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("list categories: %w", err)
	}
	cand, err := p.extractor.FromImage(ctx, image, mimeType, cats, p.now())
	if err != nil {
		return Outcome{}, err
	}
	if cand.NeedsClarification() {
		missing := cand.MissingFields()
		p.sessions.Put(chatID, sessions.Pending{Candidate: cand, Missing: missing, AskedAt: p.now()})
		return Outcome{Pending: true, Missing: missing}, nil
	}
	return p.persist(ctx, cand)
}

// resolveClarification merges the one follow-up answer into the parked
// candidate. A candidate still incomplete after the merge is discarded;
// the user starts over rather than looping on questions.
func (p *Pipeline) resolveClarification(ctx context.Context, chatID int64, pending sessions.Pending, reply string) (Outcome, error) {
	cats, err := p.registry.List(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("list categories: %w", err)
	}
	cand, err := p.extractor.Clarify(ctx, pending.Candidate, reply, cats, p.now())
	if err != nil {
		return Outcome{}, err
	}
	if cand.NeedsClarification() {
		p.logger.InfoContext(ctx, "clarification did not resolve candidate, discarding", "chat_id", chatID)
		return Outcome{Missing: cand.MissingFields()}, nil
	}
	return p.persist(ctx, cand)
}

// persist converts the candidate into the base currency and appends it to
// the ledger. Conversion failure aborts before any write; nothing partial
// ever lands in the ledger.
func (p *Pipeline) persist(ctx context.Context, cand core.Candidate) (Outcome, error) {
	conv, err := p.converter.ToBase(ctx, *cand.Amount, cand.Currency, cand.Date)
	if err != nil {
		return Outcome{}, err
	}

	exp := core.Expense{
		Date:        cand.Date,
		Amount:      conv.Amount,
		Currency:    cand.Currency,
		Category:    cand.Category,
		Description: cand.Description,
		RawSource:   cand.RawSource,
	}
	if conv.Rate != 1 {
		exp.OriginalCurrency = conv.OriginalCurrency
		exp.OriginalAmount = conv.Original
	}
	if err := exp.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("validate expense: %w", err)
	}

	// Idempotent; keeps writes correct when several instances share one
	// spreadsheet.
	if err := p.store.EnsureSchema(ctx); err != nil {
		return Outcome{}, fmt.Errorf("ensure ledger schema: %w", err)
	}
	if _, err := p.store.Append(ctx, exp); err != nil {
		return Outcome{}, fmt.Errorf("append expense: %w", err)
	}
	p.logger.InfoContext(ctx, "expense logged",
		"date", exp.Date.String(),
		"category", exp.Category,
		"amount_cents", exp.Amount.Cents)

	out := Outcome{Expense: &exp}

	alert, err := p.budgets.CheckAfterWrite(ctx, exp, p.now())
	if err != nil {
		p.logger.WarnContext(ctx, "budget check failed", "error", err)
	} else {
		out.Alert = alert
	}

	if err := p.events.PublishExpenseEvent(ctx, amqp.EventExpenseLogged, exp); err != nil {
		p.logger.WarnContext(ctx, "publish expense event failed", "error", err)
	}
	return out, nil
}

// UndoLast removes the most recent ledger row. It returns nil when the
// ledger is already empty.
func (p *Pipeline) UndoLast(ctx context.Context) (*core.Expense, error) {
	exp, err := p.store.DeleteLast(ctx)
	if err != nil {
		return nil, fmt.Errorf("delete last expense: %w", err)
	}
	if exp == nil {
		return nil, nil
	}
	p.logger.InfoContext(ctx, "expense deleted", "date", exp.Date.String(), "category", exp.Category)
	if err := p.events.PublishExpenseEvent(ctx, amqp.EventExpenseDeleted, *exp); err != nil {
		p.logger.WarnContext(ctx, "publish expense event failed", "error", err)
	}
	return exp, nil
}
