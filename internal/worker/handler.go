package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/storefront-commerce/internal/domain"
	"github.com/joao-fontenele/storefront-commerce/internal/messaging"
)

// ReceiptHandler sends a purchase receipt through the email service for each
// completed order.
type ReceiptHandler struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewReceiptHandler(emailServiceURL string, client *http.Client, logger *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		emailServiceURL: strings.TrimRight(emailServiceURL, "/"),
		httpClient:      client,
		logger:          logger,
	}
}

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *ReceiptHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderCompletedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order completed event: %w: %w", messaging.ErrPermanent, err)
	}

	if event.CustomerEmail == "" {
		h.logger.Warn("order has no customer email, skipping receipt", "order_id", event.OrderID, "transaction_id", event.TransactionID)
		return nil
	}

	h.logger.Info("sending receipt", "order_id", event.OrderID, "transaction_id", event.TransactionID)

	if err := h.sendEmail(ctx, receiptFor(event)); err != nil {
		h.logger.Error("failed to send receipt", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send receipt: %w", err)
	}

	h.logger.Info("receipt sent", "order_id", event.OrderID)
	return nil
}

func receiptFor(event domain.OrderCompletedEvent) emailRequest {
	items := "item"
	if len(event.ProductIDs) != 1 {
		items = "items"
	}
	return emailRequest{
		To:      event.CustomerEmail,
		Subject: "Your receipt for order " + event.OrderID,
		Body: fmt.Sprintf("Thanks for your purchase. Transaction %s: %d %s, total %s %s.",
			event.TransactionID, len(event.ProductIDs), items, event.Total.StringFixed(2), event.Currency),
	}
}

func (h *ReceiptHandler) sendEmail(ctx context.Context, body emailRequest) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}
