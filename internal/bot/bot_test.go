package bot

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"spendlog/internal/budget"
	"spendlog/internal/categories"
	"spendlog/internal/core"
	"spendlog/internal/currency"
	"spendlog/internal/ledger/memory"
	"spendlog/internal/log"
	"spendlog/internal/services"
	"spendlog/internal/summary"
	"spendlog/internal/telegram"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	messages []sentMessage
	photos   []sentMessage
	edits    []sentMessage
	files    map[string][]byte
	nextID   int
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string) (int, error) {
	f.messages = append(f.messages, sentMessage{chatID, text})
	f.nextID++
	return f.nextID, nil
}

func (f *fakeSender) EditMessageText(_ context.Context, chatID int64, _ int, text string) error {
	f.edits = append(f.edits, sentMessage{chatID, text})
	return nil
}

func (f *fakeSender) SendPhoto(_ context.Context, chatID int64, photoURL, _ string) error {
	f.photos = append(f.photos, sentMessage{chatID, photoURL})
	return nil
}

func (f *fakeSender) DownloadFile(_ context.Context, fileID string) ([]byte, string, error) {
	return f.files[fileID], "voice/" + fileID + ".oga", nil
}

func (f *fakeSender) lastMessage(t *testing.T) string {
	t.Helper()
	if len(f.messages) == 0 {
		t.Fatal("no messages sent")
	}
	return f.messages[len(f.messages)-1].text
}

type fakeExtractor struct {
	candidate core.Candidate
	clarified core.Candidate
}

func (f *fakeExtractor) FromText(_ context.Context, transcript string, _ categories.Snapshot, _ time.Time) (core.Candidate, error) {
	c := f.candidate
	c.RawSource = transcript
	return c, nil
}

func (f *fakeExtractor) FromImage(_ context.Context, _ []byte, _ string, _ categories.Snapshot, _ time.Time) (core.Candidate, error) {
	c := f.candidate
	c.RawSource = core.RawSourceImage
	return c, nil
}

func (f *fakeExtractor) Clarify(_ context.Context, original core.Candidate, _ string, _ categories.Snapshot, _ time.Time) (core.Candidate, error) {
	c := f.clarified
	c.RawSource = original.RawSource
	return c, nil
}

type identityConverter struct{}

func (identityConverter) ToBase(_ context.Context, amount float64, code string, _ core.Date) (currency.Conversion, error) {
	return currency.Conversion{Amount: core.MoneyFromFloat(amount), Rate: 1, Original: amount, OriginalCurrency: code}, nil
}

func (identityConverter) BaseCurrency() string { return "INR" }

type fakeTranscriber struct{ transcript string }

func (f fakeTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	return f.transcript, nil
}

type noopPublisher struct{}

func (noopPublisher) PublishExpenseEvent(_ context.Context, _ string, _ core.Expense) error {
	return nil
}

type fakeCharts struct{ url string }

func (f fakeCharts) DoughnutURL(_ context.Context, _ summary.Summary) (string, error) {
	return f.url, nil
}

var testNow = time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

func amountPtr(v float64) *float64 { return &v }

func newTestBot(t *testing.T, ex services.Extractor) (*Bot, *fakeSender, *memory.Store) {
	t.Helper()
	store := memory.New()
	logger := log.New(slog.LevelError)
	registry := categories.NewRegistry(store)
	budgets := budget.NewEngine(store, store)
	pipeline := services.NewPipeline(
		fakeTranscriber{transcript: "cab 700"},
		ex,
		identityConverter{},
		store,
		registry,
		budgets,
		noopPublisher{},
		logger,
	).WithClock(func() time.Time { return testNow })
	agg := summary.NewAggregator(store, core.Money{Cents: 50000}, "INR")
	sender := &fakeSender{files: map[string][]byte{"voice-1": []byte("ogg"), "photo-1": []byte("jpg")}}
	b := New(sender, pipeline, registry, budgets, agg, fakeCharts{url: "https://chart.example/c1"}, "INR", time.UTC, logger)
	b.now = func() time.Time { return testNow }
	return b, sender, store
}

func textUpdate(chatID int64, text string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{Chat: telegram.Chat{ID: chatID}, Text: text}}
}

func completeCandidate() core.Candidate {
	return core.Candidate{
		Date:        core.NewDate(2025, 3, 11),
		Amount:      amountPtr(700),
		Currency:    "INR",
		Category:    "Transport",
		Description: "cab to airport",
	}
}

func TestHelpCommand(t *testing.T) {
	b, sender, _ := newTestBot(t, &fakeExtractor{})
	b.HandleUpdate(context.Background(), textUpdate(1, "/help"))
	if !strings.Contains(sender.lastMessage(t), "/setbudget") {
		t.Fatalf("help should list commands, got %q", sender.lastMessage(t))
	}
}

func TestUnknownCommand(t *testing.T) {
	b, sender, _ := newTestBot(t, &fakeExtractor{})
	b.HandleUpdate(context.Background(), textUpdate(1, "/frobnicate"))
	if !strings.Contains(sender.lastMessage(t), "Unknown command") {
		t.Fatalf("got %q", sender.lastMessage(t))
	}
}

func TestTextExpenseLogged(t *testing.T) {
	b, sender, store := newTestBot(t, &fakeExtractor{candidate: completeCandidate()})
	b.HandleUpdate(context.Background(), textUpdate(1, "700 on a cab"))

	got := sender.lastMessage(t)
	if !strings.Contains(got, "Logged") || !strings.Contains(got, "₹700") {
		t.Fatalf("confirmation should show amount, got %q", got)
	}
	all, _ := store.ListAll(context.Background())
	if len(all) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(all))
	}
}

func TestClarificationRoundTrip(t *testing.T) {
	incomplete := completeCandidate()
	incomplete.Amount = nil
	ex := &fakeExtractor{candidate: incomplete, clarified: completeCandidate()}
	b, sender, store := newTestBot(t, ex)

	b.HandleUpdate(context.Background(), textUpdate(1, "bought a cab ride"))
	if got := sender.lastMessage(t); !strings.Contains(got, "How much") {
		t.Fatalf("expected amount question, got %q", got)
	}

	b.HandleUpdate(context.Background(), textUpdate(1, "700"))
	if got := sender.lastMessage(t); !strings.Contains(got, "Logged") {
		t.Fatalf("expected confirmation after reply, got %q", got)
	}
	all, _ := store.ListAll(context.Background())
	if len(all) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(all))
	}
}

func TestVoiceFlowEditsProgressMessage(t *testing.T) {
	b, sender, _ := newTestBot(t, &fakeExtractor{candidate: completeCandidate()})
	update := telegram.Update{Message: &telegram.Message{
		Chat:  telegram.Chat{ID: 1},
		Voice: &telegram.Voice{FileID: "voice-1"},
	}}
	b.HandleUpdate(context.Background(), update)

	if len(sender.messages) != 1 || !strings.Contains(sender.messages[0].text, "Transcribing") {
		t.Fatalf("expected progress message first, got %v", sender.messages)
	}
	if len(sender.edits) != 1 || !strings.Contains(sender.edits[0].text, "Heard: cab 700") {
		t.Fatalf("final edit should echo the transcript, got %v", sender.edits)
	}
}

func TestPhotoFlow(t *testing.T) {
	b, sender, store := newTestBot(t, &fakeExtractor{candidate: completeCandidate()})
	update := telegram.Update{Message: &telegram.Message{
		Chat:  telegram.Chat{ID: 1},
		Photo: []telegram.PhotoSize{{FileID: "photo-1", Width: 1280, Height: 960}},
	}}
	b.HandleUpdate(context.Background(), update)

	if len(sender.edits) != 1 || !strings.Contains(sender.edits[0].text, "Logged") {
		t.Fatalf("expected confirmation edit, got %v", sender.edits)
	}
	all, _ := store.ListAll(context.Background())
	if len(all) != 1 || all[0].RawSource != core.RawSourceImage {
		t.Fatalf("photo rows carry the photo marker, got %+v", all)
	}
}

func TestWeekSummaryCommand(t *testing.T) {
	b, sender, store := newTestBot(t, &fakeExtractor{})
	store.Append(context.Background(), core.Expense{
		Date: core.NewDate(2025, 3, 11), Amount: core.Money{Cents: 70000},
		Currency: "INR", Category: "Transport", Description: "cab",
	})

	b.HandleUpdate(context.Background(), textUpdate(1, "/week"))
	got := sender.lastMessage(t)
	for _, want := range []string{"Week summary", "₹700", "Transport", "High-value"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary should contain %q, got %q", want, got)
		}
	}
}

func TestWeekSummaryEmpty(t *testing.T) {
	b, sender, _ := newTestBot(t, &fakeExtractor{})
	b.HandleUpdate(context.Background(), textUpdate(1, "/week"))
	if !strings.Contains(sender.lastMessage(t), "No expenses") {
		t.Fatalf("got %q", sender.lastMessage(t))
	}
}

func TestChartCommand(t *testing.T) {
	b, sender, store := newTestBot(t, &fakeExtractor{})
	store.Append(context.Background(), core.Expense{
		Date: core.NewDate(2025, 3, 11), Amount: core.Money{Cents: 70000},
		Currency: "INR", Category: "Transport", Description: "cab",
	})

	b.HandleUpdate(context.Background(), textUpdate(1, "/chart"))
	if len(sender.photos) != 1 || sender.photos[0].text != "https://chart.example/c1" {
		t.Fatalf("expected chart photo, got %v", sender.photos)
	}
}

func TestChartCommandEmptyMonth(t *testing.T) {
	b, sender, _ := newTestBot(t, &fakeExtractor{})
	b.HandleUpdate(context.Background(), textUpdate(1, "/chart"))
	if len(sender.photos) != 0 {
		t.Fatal("no chart for an empty month")
	}
	if !strings.Contains(sender.lastMessage(t), "nothing to chart") {
		t.Fatalf("got %q", sender.lastMessage(t))
	}
}

func TestUndoCommand(t *testing.T) {
	b, sender, store := newTestBot(t, &fakeExtractor{candidate: completeCandidate()})
	b.HandleUpdate(context.Background(), textUpdate(1, "700 on a cab"))
	b.HandleUpdate(context.Background(), textUpdate(1, "/undo"))

	if !strings.Contains(sender.lastMessage(t), "Removed") {
		t.Fatalf("got %q", sender.lastMessage(t))
	}
	all, _ := store.ListAll(context.Background())
	if len(all) != 0 {
		t.Fatal("undo should empty the ledger")
	}

	b.HandleUpdate(context.Background(), textUpdate(1, "/undo"))
	if !strings.Contains(sender.lastMessage(t), "Nothing to undo") {
		t.Fatalf("got %q", sender.lastMessage(t))
	}
}

func TestCategoryCommands(t *testing.T) {
	b, sender, _ := newTestBot(t, &fakeExtractor{})
	ctx := context.Background()

	b.HandleUpdate(ctx, textUpdate(1, "/addcategory Pets"))
	if !strings.Contains(sender.lastMessage(t), "Added category") {
		t.Fatalf("got %q", sender.lastMessage(t))
	}

	b.HandleUpdate(ctx, textUpdate(1, "/addcategory pets"))
	if !strings.Contains(sender.lastMessage(t), "already exists") {
		t.Fatalf("duplicate add: got %q", sender.lastMessage(t))
	}

	b.HandleUpdate(ctx, textUpdate(1, "/categories"))
	got := sender.lastMessage(t)
	if !strings.Contains(got, "Pets") || !strings.Contains(got, "Food") {
		t.Fatalf("categories list: got %q", got)
	}

	b.HandleUpdate(ctx, textUpdate(1, "/removecategory Food"))
	if !strings.Contains(sender.lastMessage(t), "not a removable") {
		t.Fatalf("default removal: got %q", sender.lastMessage(t))
	}

	b.HandleUpdate(ctx, textUpdate(1, "/removecategory Pets"))
	if !strings.Contains(sender.lastMessage(t), "Removed category") {
		t.Fatalf("custom removal: got %q", sender.lastMessage(t))
	}
}

func TestBudgetCommands(t *testing.T) {
	b, sender, store := newTestBot(t, &fakeExtractor{})
	ctx := context.Background()

	b.HandleUpdate(ctx, textUpdate(1, "/setbudget Food 1000"))
	if !strings.Contains(sender.lastMessage(t), "set to ₹1000") {
		t.Fatalf("got %q", sender.lastMessage(t))
	}

	store.Append(ctx, core.Expense{
		Date: core.NewDate(2025, 3, 11), Amount: core.Money{Cents: 85000},
		Currency: "INR", Category: "Food", Description: "groceries",
	})

	b.HandleUpdate(ctx, textUpdate(1, "/budgets"))
	got := sender.lastMessage(t)
	if !strings.Contains(got, "Food") || !strings.Contains(got, "85%") {
		t.Fatalf("budgets view: got %q", got)
	}

	b.HandleUpdate(ctx, textUpdate(1, "/setbudget Food nonsense"))
	if !strings.Contains(sender.lastMessage(t), "doesn't look right") {
		t.Fatalf("invalid amount: got %q", sender.lastMessage(t))
	}

	b.HandleUpdate(ctx, textUpdate(1, "/removebudget Food"))
	if !strings.Contains(sender.lastMessage(t), "Removed budget") {
		t.Fatalf("got %q", sender.lastMessage(t))
	}
	b.HandleUpdate(ctx, textUpdate(1, "/removebudget Food"))
	if !strings.Contains(sender.lastMessage(t), "No budget set") {
		t.Fatalf("got %q", sender.lastMessage(t))
	}
}

func TestBudgetAlertFollowsConfirmation(t *testing.T) {
	b, sender, _ := newTestBot(t, &fakeExtractor{candidate: completeCandidate()})
	ctx := context.Background()
	b.HandleUpdate(ctx, textUpdate(1, "/setbudget Transport 800"))

	b.HandleUpdate(ctx, textUpdate(1, "700 on a cab"))
	got := sender.lastMessage(t)
	if !strings.Contains(got, "budget at 88%") {
		t.Fatalf("expected warning alert, got %q", got)
	}
}

func TestBotClockUsesConfiguredLocation(t *testing.T) {
	store := memory.New()
	logger := log.New(slog.LevelError)
	registry := categories.NewRegistry(store)
	budgets := budget.NewEngine(store, store)
	pipeline := services.NewPipeline(
		fakeTranscriber{}, &fakeExtractor{}, identityConverter{},
		store, registry, budgets, noopPublisher{}, logger,
	)
	agg := summary.NewAggregator(store, core.Money{Cents: 50000}, "INR")
	ist := time.FixedZone("IST", 5*3600+1800)

	b := New(&fakeSender{}, pipeline, registry, budgets, agg, fakeCharts{}, "INR", ist, logger)
	if got := b.now().Location(); got != ist {
		t.Fatalf("bot clock should run in the configured zone, got %v", got)
	}

	b = New(&fakeSender{}, pipeline, registry, budgets, agg, fakeCharts{}, "INR", nil, logger)
	if got := b.now().Location(); got != time.UTC {
		t.Fatalf("nil location should fall back to UTC, got %v", got)
	}
}

func TestIgnoresNonMessageUpdates(t *testing.T) {
	b, sender, _ := newTestBot(t, &fakeExtractor{})
	b.HandleUpdate(context.Background(), telegram.Update{})
	if len(sender.messages) != 0 {
		t.Fatalf("nothing should be sent, got %v", sender.messages)
	}
}
