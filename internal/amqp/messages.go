package amqp

import (
	"encoding/json"
	"time"
)

// ExpensePostedMessage represents an expense reported by an external feed.
// The amount is carried in cents; the worker applies it to the active cycle.
type ExpensePostedMessage struct {
	AccountID   string    `json:"accountId"`
	CycleID     string    `json:"cycleId,omitempty"`
	AmountCents int64     `json:"amountCents"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewExpensePostedMessage creates a new expense feed message
func NewExpensePostedMessage(accountID, cycleID string, amountCents int64, description string) *ExpensePostedMessage {
	return &ExpensePostedMessage{
		AccountID:   accountID,
		CycleID:     cycleID,
		AmountCents: amountCents,
		Description: description,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpensePostedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpensePostedMessageFromJSON creates a message from JSON bytes
func ExpensePostedMessageFromJSON(data []byte) (*ExpensePostedMessage, error) {
	var msg ExpensePostedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// CycleClosedMessage is emitted when a cycle closes. The worker exports
// closed cycles to the report sheet from these events.
type CycleClosedMessage struct {
	AccountID    string    `json:"accountId"`
	CycleID      string    `json:"cycleId"`
	SurplusCents int64     `json:"surplusCents"`
	DeficitCents int64     `json:"deficitCents"`
	Outcome      string    `json:"outcome"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewCycleClosedMessage creates a new cycle closed event
func NewCycleClosedMessage(accountID, cycleID string, surplusCents, deficitCents int64, outcome string) *CycleClosedMessage {
	return &CycleClosedMessage{
		AccountID:    accountID,
		CycleID:      cycleID,
		SurplusCents: surplusCents,
		DeficitCents: deficitCents,
		Outcome:      outcome,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *CycleClosedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CycleClosedMessageFromJSON creates a message from JSON bytes
func CycleClosedMessageFromJSON(data []byte) (*CycleClosedMessage, error) {
	var msg CycleClosedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
