package entitlements

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joao-fontenele/storefront-commerce/internal/domain"
)

const DefaultDownloadExpiry = time.Hour

type EntitlementChecker interface {
	HasEntitlement(ctx context.Context, userID, productID string) (bool, error)
}

// URLSigner produces a time-limited GET URL for an object key.
type URLSigner interface {
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Credential is a short-lived URL for one product file.
type Credential struct {
	URL       string
	ExpiresAt time.Time
}

type Issuer struct {
	entitlements EntitlementChecker
	products     ProductFinder
	signer       URLSigner
	expiry       time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

func NewIssuer(entitlements EntitlementChecker, products ProductFinder, signer URLSigner, expiry time.Duration, logger *slog.Logger) *Issuer {
	if expiry <= 0 {
		expiry = DefaultDownloadExpiry
	}
	return &Issuer{
		entitlements: entitlements,
		products:     products,
		signer:       signer,
		expiry:       expiry,
		logger:       logger,
		now:          time.Now,
	}
}

// Issue returns a download credential for the product's stored file. The
// caller must be signed in and entitled; no file is ever signed otherwise.
func (i *Issuer) Issue(ctx context.Context, userID, productID string) (Credential, error) {
	if userID == "" {
		return Credential{}, domain.ErrUnauthorized
	}

	entitled, err := i.entitlements.HasEntitlement(ctx, userID, productID)
	if err != nil {
		return Credential{}, fmt.Errorf("check entitlement: %w", err)
	}
	if !entitled {
		i.logger.Info("download denied", "user_id", userID, "product_id", productID)
		return Credential{}, domain.ErrForbidden
	}

	product, err := i.products.GetByID(ctx, productID)
	if err != nil {
		return Credential{}, fmt.Errorf("lookup product %s: %w", productID, err)
	}
	if product == nil || !product.HasFile() {
		return Credential{}, domain.ErrNoFile
	}

	issuedAt := i.now()
	url, err := i.signer.PresignGet(ctx, product.FilePath, i.expiry)
	if err != nil {
		return Credential{}, fmt.Errorf("presign %s: %w", product.FilePath, err)
	}

	i.logger.Info("download issued", "user_id", userID, "product_id", productID)
	return Credential{URL: url, ExpiresAt: issuedAt.Add(i.expiry)}, nil
}
