// Package scheduler pushes recurring summaries to the configured chat:
// weekly on Saturday evening and monthly on the last day of the month.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"spendlog/internal/log"
	"spendlog/internal/summary"
)

type Summarizer interface {
	Summarize(ctx context.Context, p summary.Period, now time.Time) (summary.Summary, error)
}

type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
}

type Formatter func(summary.Summary) string

type Scheduler struct {
	aggregator Summarizer
	notifier   Notifier
	format     Formatter
	chatID     int64
	hour       int
	location   *time.Location
	logger     *log.Logger
	now        func() time.Time

	// fired dedupes within the minute the tick lands on.
	fired map[string]bool
}

func New(
	aggregator Summarizer,
	notifier Notifier,
	format Formatter,
	chatID int64,
	hour int,
	location *time.Location,
	logger *log.Logger,
) *Scheduler {
	return &Scheduler{
		aggregator: aggregator,
		notifier:   notifier,
		format:     format,
		chatID:     chatID,
		hour:       hour,
		location:   location,
		logger:     logger.WithComponent("scheduler"),
		now:        time.Now,
		fired:      make(map[string]bool),
	}
}

// Run ticks every minute until the context is cancelled. Without a
// configured chat there is nobody to notify, so it exits immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.chatID == 0 {
		s.logger.InfoContext(ctx, "no chat configured, scheduler idle")
		return nil
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "scheduler started", "hour", s.hour, "location", s.location.String())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx, s.now().In(s.location))
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	if key, ok := s.due(now, summary.PeriodWeek); ok && !s.fired[key] {
		s.fired[key] = true
		s.deliver(ctx, summary.PeriodWeek, now)
	}
	if key, ok := s.due(now, summary.PeriodMonth); ok && !s.fired[key] {
		s.fired[key] = true
		s.deliver(ctx, summary.PeriodMonth, now)
	}
}

// due reports whether the period's summary should go out at this instant
// and returns a dedup key for the day it fires on.
func (s *Scheduler) due(now time.Time, p summary.Period) (string, bool) {
	if now.Hour() != s.hour || now.Minute() != 0 {
		return "", false
	}
	switch p {
	case summary.PeriodWeek:
		if now.Weekday() != time.Saturday {
			return "", false
		}
	case summary.PeriodMonth:
		if !isLastDayOfMonth(now) {
			return "", false
		}
	default:
		return "", false
	}
	return fmt.Sprintf("%s-%s", p, now.Format("2006-01-02")), true
}

func isLastDayOfMonth(now time.Time) bool {
	return now.AddDate(0, 0, 1).Month() != now.Month()
}

func (s *Scheduler) deliver(ctx context.Context, p summary.Period, now time.Time) {
	sum, err := s.aggregator.Summarize(ctx, p, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled summary failed", "period", p, "error", err)
		return
	}
	if _, err := s.notifier.SendMessage(ctx, s.chatID, s.format(sum)); err != nil {
		s.logger.ErrorContext(ctx, "scheduled summary send failed", "period", p, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "scheduled summary delivered", "period", p, "total_cents", sum.Total.Cents)
}
