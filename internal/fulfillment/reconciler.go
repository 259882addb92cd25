package fulfillment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joao-fontenele/storefront-commerce/internal/domain"
)

type PriceLookup interface {
	// ProductIDForPrice returns "" when no product maps to priceID.
	ProductIDForPrice(ctx context.Context, priceID string) (string, error)
}

type OrderStore interface {
	// SaveCompleted upserts the order by transaction id and inserts any of its
	// items not already present. It sets order.ID and order.Status.
	SaveCompleted(ctx context.Context, order *domain.Order) (created bool, itemsInserted int, err error)
	// MarkRefunded records the refund even when the order does not exist
	// yet, so a later SaveCompleted cannot grant access. It reports whether
	// the order already existed.
	MarkRefunded(ctx context.Context, transactionID string) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Line struct {
	PriceID    string
	UnitAmount string
}

// Transaction is a completed processor transaction with amounts as they
// appeared on the wire.
type Transaction struct {
	ID            string
	CustomerEmail string
	IdentityHint  string
	Lines         []Line
	TotalAmount   string
	Currency      string
}

type Result struct {
	OrderID       string
	UserID        string
	Created       bool
	ItemsInserted int
	SkippedLines  int
}

type Reconciler struct {
	resolver  *UserResolver
	prices    PriceLookup
	orders    OrderStore
	publisher EventPublisher
	unit      AmountUnit
	logger    *slog.Logger
	now       func() time.Time
}

// NewReconciler builds a Reconciler. publisher may be nil.
func NewReconciler(resolver *UserResolver, prices PriceLookup, orders OrderStore, publisher EventPublisher, unit AmountUnit, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		resolver:  resolver,
		prices:    prices,
		orders:    orders,
		publisher: publisher,
		unit:      unit,
		logger:    logger,
		now:       time.Now,
	}
}

// Reconcile records a completed transaction. Applying the same transaction
// any number of times, concurrently or not, leaves one order with one item per
// mapped product.
func (r *Reconciler) Reconcile(ctx context.Context, txn Transaction) (*Result, error) {
	if strings.TrimSpace(txn.ID) == "" {
		return nil, fmt.Errorf("missing transaction id: %w", domain.ErrInvalidPayload)
	}
	if strings.TrimSpace(txn.Currency) == "" {
		return nil, fmt.Errorf("missing currency: %w", domain.ErrInvalidPayload)
	}

	total, err := r.unit.ToMajor(txn.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("total: %w", err)
	}

	order := &domain.Order{
		TransactionID: txn.ID,
		Status:        domain.OrderStatusCompleted,
		Total:         total,
		Currency:      strings.ToUpper(txn.Currency),
		CustomerEmail: txn.CustomerEmail,
		CreatedAt:     r.now().UTC(),
	}

	// Everything below up to SaveCompleted is read-only, so nothing is held
	// open while the lookups run.
	userID, err := r.resolver.Resolve(ctx, txn.IdentityHint, txn.CustomerEmail)
	if err != nil {
		return nil, err
	}
	if userID != "" {
		order.UserID = &userID
	}

	result := &Result{UserID: userID}
	seen := make(map[string]bool, len(txn.Lines))
	for _, line := range txn.Lines {
		price, err := r.unit.ToMajor(line.UnitAmount)
		if err != nil {
			return nil, fmt.Errorf("line %s: %w", line.PriceID, err)
		}

		productID, err := r.prices.ProductIDForPrice(ctx, line.PriceID)
		if err != nil {
			return nil, fmt.Errorf("lookup product for price %s: %w", line.PriceID, err)
		}
		if productID == "" {
			r.logger.Warn("no product for price, skipping line item", "transaction_id", txn.ID, "price_id", line.PriceID)
			result.SkippedLines++
			continue
		}
		if seen[productID] {
			continue
		}
		seen[productID] = true

		order.Items = append(order.Items, domain.OrderItem{ProductID: productID, Price: price})
	}

	created, inserted, err := r.orders.SaveCompleted(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("save order %s: %w", txn.ID, err)
	}
	result.OrderID = order.ID
	result.Created = created
	result.ItemsInserted = inserted

	if userID == "" {
		r.logger.Warn("order recorded without a resolved user", "transaction_id", txn.ID, "order_id", order.ID, "customer_email", txn.CustomerEmail)
	}

	if created {
		r.publishCompleted(ctx, order)
	}

	r.logger.Info("transaction reconciled",
		"transaction_id", txn.ID,
		"order_id", order.ID,
		"created", created,
		"items_inserted", inserted,
		"skipped_lines", result.SkippedLines,
	)
	return result, nil
}

// Refund marks the order for transactionID refunded. It reports false when the
// refund arrived before the transaction; the refund still holds once the
// transaction is reconciled.
func (r *Reconciler) Refund(ctx context.Context, transactionID string) (bool, error) {
	if transactionID == "" {
		return false, fmt.Errorf("missing transaction id: %w", domain.ErrInvalidPayload)
	}
	found, err := r.orders.MarkRefunded(ctx, transactionID)
	if err != nil {
		return false, fmt.Errorf("refund order %s: %w", transactionID, err)
	}
	if !found {
		r.logger.Warn("refund recorded before its transaction", "transaction_id", transactionID)
		return false, nil
	}
	r.logger.Info("order refunded", "transaction_id", transactionID)
	return true, nil
}

func (r *Reconciler) publishCompleted(ctx context.Context, order *domain.Order) {
	if r.publisher == nil {
		return
	}

	event := domain.OrderCompletedEvent{
		OrderID:       order.ID,
		TransactionID: order.TransactionID,
		CustomerEmail: order.CustomerEmail,
		Total:         order.Total,
		Currency:      order.Currency,
		ProductIDs:    make([]string, 0, len(order.Items)),
		Timestamp:     order.CreatedAt,
	}
	if order.UserID != nil {
		event.UserID = *order.UserID
	}
	for _, item := range order.Items {
		event.ProductIDs = append(event.ProductIDs, item.ProductID)
	}

	if err := r.publisher.Publish(ctx, order.ID, event); err != nil {
		r.logger.Error("failed to publish order completed event", "error", err, "order_id", order.ID)
	}
}
