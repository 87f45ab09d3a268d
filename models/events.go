package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Envelope is the wire format shared with the messaging collaborator.
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Target    string          `json:"target,omitempty"`
}

type OrderItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// PaymentOrderMessage is the payload of a payment_order envelope.
type PaymentOrderMessage struct {
	OrderID       string          `json:"orderId"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
	Description   string          `json:"description,omitempty"`
	Items         []OrderItem     `json:"items,omitempty"`
}

// DecodePaymentOrderMessage parses raw into a PaymentOrderMessage, rejecting
// unknown fields so malformed producers fail fast instead of half-matching.
func DecodePaymentOrderMessage(raw []byte) (*PaymentOrderMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var msg PaymentOrderMessage
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode payment order: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Validate checks the closed schema of an inbound order event.
func (m *PaymentOrderMessage) Validate() error {
	if m.OrderID == "" {
		return fmt.Errorf("payment order missing orderId")
	}
	if m.UserID == "" {
		return fmt.Errorf("payment order missing userId")
	}
	if !m.Amount.IsPositive() {
		return fmt.Errorf("payment order amount must be positive, got %s", m.Amount)
	}
	if !PaymentMethod(m.PaymentMethod).Valid() {
		return fmt.Errorf("payment order has unknown payment method %q", m.PaymentMethod)
	}
	return nil
}

// PaymentEvent is published after a consumed order event has been processed.
type PaymentEvent struct {
	PaymentID string          `json:"paymentId"`
	OrderID   string          `json:"orderId"`
	BuyerID   string          `json:"buyerId"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
