package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"spendlog/internal/amqp"
	"spendlog/internal/bot"
	"spendlog/internal/budget"
	"spendlog/internal/categories"
	"spendlog/internal/chart"
	"spendlog/internal/config"
	"spendlog/internal/core"
	"spendlog/internal/currency"
	"spendlog/internal/extract"
	"spendlog/internal/ledger"
	lgoogle "spendlog/internal/ledger/google"
	"spendlog/internal/ledger/memory"
	"spendlog/internal/ledger/sqlite"
	"spendlog/internal/log"
	"spendlog/internal/scheduler"
	"spendlog/internal/services"
	"spendlog/internal/summary"
	"spendlog/internal/telegram"
	"spendlog/internal/transcribe"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(slog.LevelInfo)
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newLedgerStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("ledger initialization failed", "error", err, "backend", cfg.LedgerBackend)
		os.Exit(1)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("ledger schema check failed", "error", err)
		os.Exit(1)
	}

	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("AMQP connection failed", "error", err)
			os.Exit(1)
		}
		defer events.Close()
		logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	gemini, err := extract.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Error("Gemini client initialization failed", "error", err)
		os.Exit(1)
	}

	registry := categories.NewRegistry(store)
	budgets := budget.NewEngine(store, store)
	aggregator := summary.NewAggregator(store, core.Money{Cents: cfg.HighValueThreshold}, cfg.BaseCurrency)
	pipeline := services.NewPipeline(
		transcribe.NewWhisperClient(cfg.OpenAIAPIKey),
		extract.NewExtractor(gemini, cfg.BaseCurrency),
		currency.NewConverter(cfg.BaseCurrency),
		store,
		registry,
		budgets,
		events,
		logger,
	)

	tg := telegram.NewClient(cfg.TelegramBotToken, telegram.WithAPIBase(cfg.TelegramAPIBase))
	b := bot.New(tg, pipeline, registry, budgets, aggregator, chart.NewRenderer(), cfg.BaseCurrency, cfg.Location(), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", b.WebhookHandler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        mux,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	sched := scheduler.New(
		aggregator,
		tg,
		bot.ScheduledSummaryText,
		parseChatID(cfg.TelegramChatID, logger),
		cfg.SummaryHour,
		cfg.Location(),
		logger,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting webhook server", "port", cfg.Port, "backend", cfg.LedgerBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := sched.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}

func newLedgerStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (ledger.Store, error) {
	switch cfg.LedgerBackend {
	case "sheets":
		client, err := lgoogle.New(ctx, lgoogle.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			ExpensesSheet:      cfg.GoogleExpensesSheet,
			CategoriesSheet:    cfg.GoogleCategoriesSheet,
			BudgetsSheet:       cfg.GoogleBudgetsSheet,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("ledger backend ready", "backend", "sheets", "spreadsheet", cfg.GoogleSpreadsheetID)
		return client, nil
	case "sqlite":
		repo, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, err
		}
		logger.Info("ledger backend ready", "backend", "sqlite", "path", cfg.SQLiteDBPath)
		return repo, nil
	default:
		logger.Info("ledger backend ready", "backend", "memory")
		return memory.New(), nil
	}
}

func parseChatID(raw string, logger *log.Logger) int64 {
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logger.Warn("invalid TELEGRAM_CHAT_ID, scheduled summaries disabled", "value", raw)
		return 0
	}
	return id
}
