package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventOrderCompleted names OrderCompletedEvent on the wire.
const EventOrderCompleted = "order.completed"

// OrderCompletedEvent is published once per transaction, the first time it is
// reconciled.
type OrderCompletedEvent struct {
	OrderID       string          `json:"order_id"`
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id,omitempty"`
	CustomerEmail string          `json:"customer_email"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	ProductIDs    []string        `json:"product_ids"`
	Timestamp     time.Time       `json:"timestamp"`
}

func (OrderCompletedEvent) EventType() string { return EventOrderCompleted }
