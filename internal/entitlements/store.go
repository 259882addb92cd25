package entitlements

import (
	"context"
	"database/sql"

	"github.com/joao-fontenele/storefront-commerce/internal/domain"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// HasEntitlement reports whether userID may access productID, either through
// an item on one of their completed orders or through a free or granted
// entitlement row. Orders in any other status never grant access.
func (s *Store) HasEntitlement(ctx context.Context, userID, productID string) (bool, error) {
	var entitled bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE o.user_id = $1 AND oi.product_id = $2 AND o.status = $3
		) OR EXISTS (
			SELECT 1
			FROM entitlements e
			WHERE e.user_id = $1 AND e.product_id = $2 AND e.source IN ($4, $5)
		)
	`, userID, productID, domain.OrderStatusCompleted,
		domain.EntitlementSourceFree, domain.EntitlementSourceAdminGrant,
	).Scan(&entitled)
	if err != nil {
		return false, err
	}
	return entitled, nil
}

// GrantFree records a free entitlement. Granting an existing pair is a no-op.
func (s *Store) GrantFree(ctx context.Context, userID, productID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entitlements (user_id, product_id, source)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`, userID, productID, domain.EntitlementSourceFree)
	return err
}

// ListForUser returns the explicit entitlement rows held by userID.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]domain.Entitlement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, product_id, source, granted_at
		FROM entitlements
		WHERE user_id = $1
		ORDER BY granted_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []domain.Entitlement
	for rows.Next() {
		var e domain.Entitlement
		if err := rows.Scan(&e.UserID, &e.ProductID, &e.Source, &e.GrantedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
