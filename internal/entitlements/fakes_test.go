package entitlements

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/joao-fontenele/storefront-commerce/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProducts struct {
	products map[string]*domain.Product
	err      error
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products[id], nil
}

// fakeGrants stands in for the entitlement store: purchases are seeded, free
// grants are recorded under a mutex keyed like the table's primary key.
type fakeGrants struct {
	mu        sync.Mutex
	purchased map[string]bool
	free      map[string]bool
	err       error
}

func newFakeGrants() *fakeGrants {
	return &fakeGrants{purchased: map[string]bool{}, free: map[string]bool{}}
}

func key(userID, productID string) string {
	return userID + "/" + productID
}

func (f *fakeGrants) HasEntitlement(_ context.Context, userID, productID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	k := key(userID, productID)
	return f.purchased[k] || f.free[k], nil
}

func (f *fakeGrants) GrantFree(_ context.Context, userID, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.free[key(userID, productID)] = true
	return nil
}

func (f *fakeGrants) freeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.free)
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
	err      error
}

func (f *fakeProfiles) EnsureProfile(_ context.Context, p domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.profiles == nil {
		f.profiles = map[string]domain.Profile{}
	}
	if _, ok := f.profiles[p.ID]; !ok {
		f.profiles[p.ID] = p
	}
	return nil
}

type fakeSigner struct {
	keys []string
	err  error
}

func (f *fakeSigner) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return fmt.Sprintf("https://files.example.com/%s?X-Amz-Expires=%d", key, int(expiry.Seconds())), nil
}
