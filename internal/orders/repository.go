package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/storefront-commerce/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// SaveCompleted upserts the order keyed by its transaction id and inserts the
// items that are not stored yet. Concurrent calls for the same transaction
// serialize on the unique constraints, so each call either applies its rows or
// finds them already present. A refunded order keeps its status.
func (r *OrderRepository) SaveCompleted(ctx context.Context, order *domain.Order) (bool, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var created bool
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (id, transaction_id, user_id, status, total, currency, customer_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (transaction_id) DO UPDATE SET
			user_id = COALESCE(EXCLUDED.user_id, orders.user_id),
			status = CASE WHEN orders.status = 'refunded' THEN orders.status ELSE EXCLUDED.status END,
			total = EXCLUDED.total,
			currency = EXCLUDED.currency,
			customer_email = COALESCE(EXCLUDED.customer_email, orders.customer_email),
			updated_at = NOW()
		RETURNING id, status, (xmax = 0)
	`, uuid.New().String(), order.TransactionID, order.UserID, order.Status, order.Total,
		order.Currency, nullString(order.CustomerEmail), order.CreatedAt,
	).Scan(&order.ID, &order.Status, &created)
	if err != nil {
		return false, 0, fmt.Errorf("upsert order: %w", err)
	}

	inserted := 0
	for _, item := range order.Items {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, price)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (order_id, product_id) DO NOTHING
		`, uuid.New().String(), order.ID, item.ProductID, item.Price)
		if err != nil {
			return false, 0, fmt.Errorf("insert order item %s: %w", item.ProductID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return false, 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, err
	}
	return created, inserted, nil
}

// placeholderCurrency is the ISO 4217 code for "no currency". It marks a
// refunded order whose completion has not been delivered yet.
const placeholderCurrency = "XXX"

// MarkRefunded sets the order for transactionID to refunded and reports whether
// the order already existed. A refund that arrives before its transaction
// leaves a refunded placeholder row, which SaveCompleted fills in later without
// changing its status.
func (r *OrderRepository) MarkRefunded(ctx context.Context, transactionID string) (bool, error) {
	var inserted bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO orders (id, transaction_id, status, total, currency, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, NOW(), NOW())
		ON CONFLICT (transaction_id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING (xmax = 0)
	`, uuid.New().String(), transactionID, domain.OrderStatusRefunded, placeholderCurrency).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("mark refunded: %w", err)
	}
	return !inserted, nil
}

func (r *OrderRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Order, error) {
	order := &domain.Order{}
	var userID, email sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, user_id, status, total, currency, customer_email, created_at
		FROM orders
		WHERE transaction_id = $1
	`, transactionID).Scan(&order.ID, &order.TransactionID, &userID, &order.Status, &order.Total,
		&order.Currency, &email, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if userID.Valid {
		order.UserID = &userID.String
	}
	order.CustomerEmail = email.String

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`, order.ID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	order.Items = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Price); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

// ListByUser returns userID's orders, newest first, with their items loaded in
// one batched query.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, transaction_id, status, total, currency, customer_email, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		var email sql.NullString
		if err := rows.Scan(&order.ID, &order.TransactionID, &order.Status, &order.Total,
			&order.Currency, &email, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.UserID = &userID
		order.CustomerEmail = email.String
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, price
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Price); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
