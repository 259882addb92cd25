package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/joao-fontenele/storefront-commerce/internal/domain"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	product := &domain.Product{}
	var filePath, priceID sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, is_published, is_free, file_path, processor_price_id
		FROM products
		WHERE id = $1
	`, id).Scan(&product.ID, &product.Title, &product.IsPublished, &product.IsFree, &filePath, &priceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	product.FilePath = filePath.String
	product.ProcessorPriceID = priceID.String
	return product, nil
}

// ProductIDForPrice returns "" when no product is linked to priceID.
func (r *ProductRepository) ProductIDForPrice(ctx context.Context, priceID string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM products WHERE processor_price_id = $1
	`, priceID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return id, nil
}
