package amqp

import (
	"context"
	"testing"
	"time"

	"spendlog/internal/core"
)

func TestNilClientDropsEvents(t *testing.T) {
	var c *Client
	err := c.PublishExpenseEvent(context.Background(), EventExpenseLogged, core.Expense{})
	if err != nil {
		t.Fatalf("nil client should drop silently, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil client close: %v", err)
	}
}

func TestExpenseEventJSON(t *testing.T) {
	exp := core.Expense{
		Date:        core.NewDate(2025, 3, 9),
		Amount:      core.Money{Cents: 70000},
		Currency:    "INR",
		Category:    "Transport",
		Description: "cab to airport",
	}

	msg := NewExpenseEvent(EventExpenseLogged, exp)
	if msg.Event != EventExpenseLogged || msg.Date != "2025-03-09" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.Timestamp.IsZero() || time.Since(msg.Timestamp) > time.Second {
		t.Fatal("timestamp should be recent")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := ExpenseEventFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.AmountCents != 70000 || parsed.Category != "Transport" {
		t.Fatalf("round trip lost data: %+v", parsed)
	}
}

func TestExpenseEventInvalidJSON(t *testing.T) {
	if _, err := ExpenseEventFromJSON([]byte(`{"amount_cents":"nope"}`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
