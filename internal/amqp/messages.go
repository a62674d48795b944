package amqp

import (
	"encoding/json"
	"time"

	"spendlog/internal/core"
)

const (
	EventExpenseLogged  = "expense.logged"
	EventExpenseDeleted = "expense.deleted"
)

// ExpenseEvent is published after every ledger mutation so downstream
// consumers (exports, analytics) can react without polling the ledger.
type ExpenseEvent struct {
	Event       string    `json:"event"`
	Date        string    `json:"date"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewExpenseEvent(event string, exp core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Event:       event,
		Date:        exp.Date.String(),
		AmountCents: exp.Amount.Cents,
		Currency:    exp.Currency,
		Category:    exp.Category,
		Description: exp.Description,
		Timestamp:   time.Now(),
	}
}

func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
