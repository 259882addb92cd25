package entitlements

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-commerce/internal/auth"
	"github.com/joao-fontenele/storefront-commerce/internal/domain"
)

func freeCatalog() *fakeProducts {
	return &fakeProducts{products: map[string]*domain.Product{
		"free":        {ID: "free", IsPublished: true, IsFree: true, FilePath: "free/sampler.zip"},
		"paid":        {ID: "paid", IsPublished: true, FilePath: "paid/guide.pdf"},
		"draft":       {ID: "draft", IsFree: true, FilePath: "free/draft.zip"},
		"free-nofile": {ID: "free-nofile", IsPublished: true, IsFree: true},
	}}
}

var buyer = auth.Identity{UserID: "u1", Email: "buyer@example.com"}

func TestClaim_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		identity  auth.Identity
		productID string
		want      error
	}{
		{"anonymous", auth.Identity{}, "free", domain.ErrUnauthorized},
		{"unknown product", buyer, "missing", domain.ErrProductNotFound},
		{"unpublished", buyer, "draft", domain.ErrProductNotFound},
		{"paid product", buyer, "paid", domain.ErrNotFree},
		{"no file", buyer, "free-nofile", domain.ErrNoFileAttached},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grants := newFakeGrants()
			profiles := &fakeProfiles{}
			c := NewClaimer(freeCatalog(), profiles, grants, discardLogger())

			err := c.Claim(context.Background(), tt.identity, tt.productID)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, grants.freeCount())
			assert.Empty(t, profiles.profiles)
		})
	}
}

func TestClaim_Idempotent(t *testing.T) {
	grants := newFakeGrants()
	profiles := &fakeProfiles{}
	c := NewClaimer(freeCatalog(), profiles, grants, discardLogger())

	require.NoError(t, c.Claim(context.Background(), buyer, "free"))
	require.NoError(t, c.Claim(context.Background(), buyer, "free"))

	assert.Equal(t, 1, grants.freeCount())
	assert.Equal(t, domain.Profile{ID: "u1", Email: "buyer@example.com"}, profiles.profiles["u1"])

	entitled, err := grants.HasEntitlement(context.Background(), "u1", "free")
	require.NoError(t, err)
	assert.True(t, entitled)
}

func TestClaim_Concurrent(t *testing.T) {
	grants := newFakeGrants()
	c := NewClaimer(freeCatalog(), &fakeProfiles{}, grants, discardLogger())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.Claim(context.Background(), buyer, "free")
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, grants.freeCount())
}

func TestClaim_StorageError(t *testing.T) {
	grants := newFakeGrants()
	grants.err = errors.New("db down")
	c := NewClaimer(freeCatalog(), &fakeProfiles{}, grants, discardLogger())

	err := c.Claim(context.Background(), buyer, "free")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrBadRequest)
}
