package fulfillment

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/joao-fontenele/storefront-commerce/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUsers struct {
	byID    map[string]*domain.Profile
	byEmail map[string]*domain.Profile
	err     error
}

func newFakeUsers(profiles ...domain.Profile) *fakeUsers {
	f := &fakeUsers{byID: map[string]*domain.Profile{}, byEmail: map[string]*domain.Profile{}}
	for i := range profiles {
		p := profiles[i]
		f.byID[p.ID] = &p
		if p.Email != "" {
			f.byEmail[p.Email] = &p
		}
	}
	return f
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*domain.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byID[id], nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*domain.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byEmail[email], nil
}

type fakePrices map[string]string

func (f fakePrices) ProductIDForPrice(_ context.Context, priceID string) (string, error) {
	return f[priceID], nil
}

type itemKey struct {
	orderID   string
	productID string
}

// fakeOrderStore enforces the same uniqueness rules as the orders schema.
type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	items  map[itemKey]domain.OrderItem
	err    error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: map[string]*domain.Order{}, items: map[itemKey]domain.OrderItem{}}
}

func (f *fakeOrderStore) SaveCompleted(_ context.Context, order *domain.Order) (bool, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return false, 0, f.err
	}

	existing, ok := f.orders[order.TransactionID]
	created := !ok
	if created {
		stored := *order
		stored.ID = uuid.New().String()
		stored.Items = nil
		f.orders[order.TransactionID] = &stored
		existing = &stored
	} else {
		if order.UserID != nil {
			existing.UserID = order.UserID
		}
		if existing.Status != domain.OrderStatusRefunded {
			existing.Status = order.Status
		}
		existing.Total = order.Total
		existing.Currency = order.Currency
		existing.CustomerEmail = order.CustomerEmail
	}
	order.ID = existing.ID
	order.Status = existing.Status

	inserted := 0
	for _, item := range order.Items {
		key := itemKey{orderID: existing.ID, productID: item.ProductID}
		if _, dup := f.items[key]; dup {
			continue
		}
		f.items[key] = item
		inserted++
	}
	return created, inserted, nil
}

func (f *fakeOrderStore) MarkRefunded(_ context.Context, transactionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[transactionID]
	if !ok {
		f.orders[transactionID] = &domain.Order{
			ID:            uuid.New().String(),
			TransactionID: transactionID,
			Status:        domain.OrderStatusRefunded,
		}
		return false, nil
	}
	order.Status = domain.OrderStatusRefunded
	return true, nil
}

func (f *fakeOrderStore) itemsFor(orderID string) []domain.OrderItem {
	f.mu.Lock()
	defer f.mu.Unlock()

	var items []domain.OrderItem
	for key, item := range f.items {
		if key.orderID == orderID {
			items = append(items, item)
		}
	}
	return items
}

type fakePublisher struct {
	mu     sync.Mutex
	events []any
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, _ string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}
