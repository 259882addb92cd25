package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusRefunded  OrderStatus = "refunded"
	OrderStatusFailed    OrderStatus = "failed"
)

// OrderItem is one purchased line. Price is the amount paid at purchase time in
// major currency units and is never rewritten.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
}

type Order struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	UserID        *string         `json:"user_id"`
	Status        OrderStatus     `json:"status"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	CustomerEmail string          `json:"customer_email"`
	Items         []OrderItem     `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
}
