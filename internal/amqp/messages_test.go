package amqp

import (
	"testing"
	"time"
)

func TestNewExpensePostedMessage(t *testing.T) {
	msg := NewExpensePostedMessage("default", "cycle-1", 4250, "groceries")

	if msg.AccountID != "default" {
		t.Errorf("NewExpensePostedMessage() AccountID = %v, want default", msg.AccountID)
	}
	if msg.CycleID != "cycle-1" {
		t.Errorf("NewExpensePostedMessage() CycleID = %v, want cycle-1", msg.CycleID)
	}
	if msg.AmountCents != 4250 {
		t.Errorf("NewExpensePostedMessage() AmountCents = %v, want 4250", msg.AmountCents)
	}
	if msg.Timestamp.IsZero() {
		t.Error("NewExpensePostedMessage() Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("NewExpensePostedMessage() Timestamp should be recent")
	}
}

func TestExpensePostedMessage_JSON(t *testing.T) {
	timestamp := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &ExpensePostedMessage{
		AccountID:   "default",
		CycleID:     "cycle-1",
		AmountCents: 4250,
		Description: "groceries",
		Timestamp:   timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsedMsg, err := ExpensePostedMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("ExpensePostedMessageFromJSON() error = %v", err)
	}

	if parsedMsg.AccountID != msg.AccountID {
		t.Errorf("Parsed AccountID = %v, want %v", parsedMsg.AccountID, msg.AccountID)
	}
	if parsedMsg.AmountCents != msg.AmountCents {
		t.Errorf("Parsed AmountCents = %v, want %v", parsedMsg.AmountCents, msg.AmountCents)
	}
	if !parsedMsg.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsedMsg.Timestamp, msg.Timestamp)
	}
}

func TestExpensePostedMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"amountCents": "not_a_number"}`)

	_, err := ExpensePostedMessageFromJSON(invalidJSON)
	if err == nil {
		t.Error("ExpensePostedMessageFromJSON() should fail with invalid JSON")
	}
}

func TestCycleClosedMessage_JSON(t *testing.T) {
	msg := NewCycleClosedMessage("default", "cycle-9", 35000, 0, "surplus")

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsedMsg, err := CycleClosedMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("CycleClosedMessageFromJSON() error = %v", err)
	}

	if parsedMsg.CycleID != "cycle-9" {
		t.Errorf("Parsed CycleID = %v, want cycle-9", parsedMsg.CycleID)
	}
	if parsedMsg.SurplusCents != 35000 {
		t.Errorf("Parsed SurplusCents = %v, want 35000", parsedMsg.SurplusCents)
	}
	if parsedMsg.Outcome != "surplus" {
		t.Errorf("Parsed Outcome = %v, want surplus", parsedMsg.Outcome)
	}
}
