package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joao-fontenele/storefront-commerce/internal/domain"
	"github.com/joao-fontenele/storefront-commerce/internal/fulfillment"
)

const (
	EventTransactionCompleted = "transaction.completed"
	EventAdjustmentCreated    = "adjustment.created"
	EventAdjustmentUpdated    = "adjustment.updated"
)

// Event is the notification envelope. Unknown fields are ignored.
type Event struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

type transactionData struct {
	ID           string `json:"id"`
	CurrencyCode string `json:"currency_code"`
	Customer     struct {
		Email string `json:"email"`
	} `json:"customer"`
	CustomData struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	} `json:"custom_data"`
	Items []struct {
		Price struct {
			ID        string `json:"id"`
			UnitPrice struct {
				Amount string `json:"amount"`
			} `json:"unit_price"`
		} `json:"price"`
	} `json:"items"`
	Details struct {
		Totals struct {
			Total        string `json:"total"`
			CurrencyCode string `json:"currency_code"`
		} `json:"totals"`
	} `json:"details"`
}

type adjustmentData struct {
	ID            string `json:"id"`
	Action        string `json:"action"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

// Refund describes a processor adjustment that revokes a whole transaction.
type Refund struct {
	AdjustmentID  string
	TransactionID string
}

func ParseEvent(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", domain.ErrInvalidPayload)
	}
	if strings.TrimSpace(event.EventType) == "" {
		return nil, fmt.Errorf("missing event_type: %w", domain.ErrInvalidPayload)
	}
	return &event, nil
}

// Transaction extracts a completed transaction. Amounts stay as sent; the
// reconciler converts them.
func (e *Event) Transaction() (fulfillment.Transaction, error) {
	var data transactionData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return fulfillment.Transaction{}, fmt.Errorf("decode transaction: %w", domain.ErrInvalidPayload)
	}

	if data.ID == "" {
		return fulfillment.Transaction{}, fmt.Errorf("missing transaction id: %w", domain.ErrInvalidPayload)
	}
	if data.Details.Totals.Total == "" {
		return fulfillment.Transaction{}, fmt.Errorf("missing totals: %w", domain.ErrInvalidPayload)
	}

	currency := data.Details.Totals.CurrencyCode
	if currency == "" {
		currency = data.CurrencyCode
	}

	email := data.Customer.Email
	if email == "" {
		email = data.CustomData.Email
	}

	txn := fulfillment.Transaction{
		ID:            data.ID,
		CustomerEmail: strings.TrimSpace(email),
		IdentityHint:  strings.TrimSpace(data.CustomData.UserID),
		TotalAmount:   data.Details.Totals.Total,
		Currency:      currency,
		Lines:         make([]fulfillment.Line, 0, len(data.Items)),
	}
	for i, item := range data.Items {
		if item.Price.ID == "" {
			return fulfillment.Transaction{}, fmt.Errorf("item %d missing price id: %w", i, domain.ErrInvalidPayload)
		}
		txn.Lines = append(txn.Lines, fulfillment.Line{
			PriceID:    item.Price.ID,
			UnitAmount: item.Price.UnitPrice.Amount,
		})
	}

	return txn, nil
}

// Refund returns the full, approved refund carried by an adjustment event, or
// nil when the adjustment does not revoke the transaction.
func (e *Event) Refund() (*Refund, error) {
	var data adjustmentData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("decode adjustment: %w", domain.ErrInvalidPayload)
	}
	if data.Action != "refund" || data.Type != "full" || data.Status != "approved" {
		return nil, nil
	}
	if data.TransactionID == "" {
		return nil, fmt.Errorf("adjustment missing transaction id: %w", domain.ErrInvalidPayload)
	}
	return &Refund{AdjustmentID: data.ID, TransactionID: data.TransactionID}, nil
}
