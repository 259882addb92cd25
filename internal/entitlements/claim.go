package entitlements

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/storefront-commerce/internal/auth"
	"github.com/joao-fontenele/storefront-commerce/internal/domain"
)

type ProductFinder interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, profile domain.Profile) error
}

type FreeGranter interface {
	GrantFree(ctx context.Context, userID, productID string) error
}

type Claimer struct {
	products ProductFinder
	profiles ProfileEnsurer
	grants   FreeGranter
	logger   *slog.Logger
}

func NewClaimer(products ProductFinder, profiles ProfileEnsurer, grants FreeGranter, logger *slog.Logger) *Claimer {
	return &Claimer{
		products: products,
		profiles: profiles,
		grants:   grants,
		logger:   logger,
	}
}

// Claim grants the caller a free product. Claiming the same product again
// succeeds without adding anything.
func (c *Claimer) Claim(ctx context.Context, identity auth.Identity, productID string) error {
	if identity.UserID == "" {
		return domain.ErrUnauthorized
	}

	product, err := c.products.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("lookup product %s: %w", productID, err)
	}
	if product == nil || !product.IsPublished {
		return domain.ErrProductNotFound
	}
	if !product.IsFree {
		return domain.ErrNotFree
	}
	if !product.HasFile() {
		return domain.ErrNoFileAttached
	}

	// The entitlement row references the profile, so it has to exist first.
	if err := c.profiles.EnsureProfile(ctx, domain.Profile{ID: identity.UserID, Email: identity.Email}); err != nil {
		return fmt.Errorf("ensure profile %s: %w", identity.UserID, err)
	}
	if err := c.grants.GrantFree(ctx, identity.UserID, productID); err != nil {
		return fmt.Errorf("grant free entitlement: %w", err)
	}

	c.logger.Info("free product claimed", "user_id", identity.UserID, "product_id", productID)
	return nil
}
