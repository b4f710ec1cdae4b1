package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"budgetapp/internal/core"
)

// ErrMalformedMessage marks a delivery that can never be handled. Handlers
// wrap it to have the delivery dropped instead of requeued.
var ErrMalformedMessage = errors.New("malformed message")

// ExpenseMaterializedMessage announces an expense generated from a recurring
// template. It carries the full expense because materialized rows are
// created in a batch and their store IDs aren't returned.
type ExpenseMaterializedMessage struct {
	TemplateID  int64     `json:"template_id"`
	Name        string    `json:"name"`
	AmountCents int64     `json:"amount_cents"`
	Date        string    `json:"date"`
	CategoryID  int64     `json:"category_id"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewExpenseMaterializedMessage(templateID int64, e core.Expense) *ExpenseMaterializedMessage {
	return &ExpenseMaterializedMessage{
		TemplateID:  templateID,
		Name:        e.Name,
		AmountCents: e.Amount.Cents,
		Date:        e.Date.String(),
		CategoryID:  e.CategoryID,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseMaterializedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Expense rebuilds the expense the message describes.
func (m *ExpenseMaterializedMessage) Expense() (core.Expense, error) {
	d, err := core.ParseDate(m.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: date: %w", ErrMalformedMessage, err)
	}
	return core.Expense{
		Name:       m.Name,
		Amount:     core.Cents(m.AmountCents),
		Date:       d,
		CategoryID: m.CategoryID,
	}, nil
}

// ExpenseMaterializedMessageFromJSON creates a message from JSON bytes
func ExpenseMaterializedMessageFromJSON(data []byte) (*ExpenseMaterializedMessage, error) {
	var msg ExpenseMaterializedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return &msg, nil
}
