package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/joao-fontenele/storefront-commerce/internal/domain"
	"github.com/joao-fontenele/storefront-commerce/internal/fulfillment"
	"github.com/joao-fontenele/storefront-commerce/internal/telemetry"
)

const maxBodyBytes = 1 << 20

type Reconciler interface {
	Reconcile(ctx context.Context, txn fulfillment.Transaction) (*fulfillment.Result, error)
	Refund(ctx context.Context, transactionID string) (bool, error)
}

type Handler struct {
	verifier   *Verifier
	reconciler Reconciler
	timeout    time.Duration
	metrics    *telemetry.CommerceMetrics
	logger     *slog.Logger
}

// NewHandler builds the payment notification handler. metrics may be nil.
func NewHandler(verifier *Verifier, reconciler Reconciler, timeout time.Duration, metrics *telemetry.CommerceMetrics, logger *slog.Logger) *Handler {
	return &Handler{
		verifier:   verifier,
		reconciler: reconciler,
		timeout:    timeout,
		metrics:    metrics,
		logger:     logger,
	}
}

type deliveryResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.reject(r.Context(), w, http.StatusBadRequest, "unreadable body", "unreadable")
		return
	}

	header := r.Header.Get(SignatureHeader)
	if !h.verifier.Verify(body, header) {
		h.logger.Warn("payment webhook signature verification failed", "signature_present", header != "")
		h.reject(r.Context(), w, http.StatusUnauthorized, "invalid signature", "unauthorized")
		return
	}

	event, err := ParseEvent(body)
	if err != nil {
		h.logger.Warn("unparseable payment webhook", "error", err)
		h.reject(r.Context(), w, http.StatusBadRequest, "invalid payload", "invalid")
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	logger := h.logger.With("event_id", event.EventID, "event_type", event.EventType)

	var status string
	switch event.EventType {
	case EventTransactionCompleted:
		status, err = h.handleCompleted(ctx, event)
	case EventAdjustmentCreated, EventAdjustmentUpdated:
		status, err = h.handleAdjustment(ctx, event)
	default:
		logger.Info("ignoring payment webhook event")
		status = "ignored"
	}

	if err != nil {
		if errors.Is(err, domain.ErrInvalidPayload) {
			logger.Warn("invalid payment webhook payload", "error", err)
			h.reject(ctx, w, http.StatusBadRequest, "invalid payload", "invalid")
			return
		}
		logger.Error("failed to process payment webhook", "error", err)
		h.reject(ctx, w, http.StatusInternalServerError, "internal server error", "failed")
		return
	}

	h.metrics.WebhookDelivery(ctx, status)
	h.writeJSON(w, http.StatusOK, deliveryResponse{Status: status})
}

func (h *Handler) handleCompleted(ctx context.Context, event *Event) (string, error) {
	txn, err := event.Transaction()
	if err != nil {
		return "", err
	}

	result, err := h.reconciler.Reconcile(ctx, txn)
	if err != nil {
		return "", err
	}

	h.metrics.OrderReconciled(ctx, result.Created)
	h.metrics.LineItemsSkipped(ctx, result.SkippedLines)

	if !result.Created && result.ItemsInserted == 0 {
		return "duplicate", nil
	}
	return "processed", nil
}

func (h *Handler) handleAdjustment(ctx context.Context, event *Event) (string, error) {
	refund, err := event.Refund()
	if err != nil {
		return "", err
	}
	if refund == nil {
		return "ignored", nil
	}

	if _, err := h.reconciler.Refund(ctx, refund.TransactionID); err != nil {
		return "", err
	}
	return "processed", nil
}

func (h *Handler) reject(ctx context.Context, w http.ResponseWriter, status int, message, outcome string) {
	h.metrics.WebhookDelivery(ctx, outcome)
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
