package entitlements

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-commerce/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

func TestHasEntitlement(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT EXISTS \(.*FROM order_items.*\) OR EXISTS \(.*FROM entitlements`).
		WithArgs("u1", "p1", domain.OrderStatusCompleted, domain.EntitlementSourceFree, domain.EntitlementSourceAdminGrant).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("u2", "p1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := store.HasEntitlement(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.HasEntitlement(context.Background(), "u2", "p1")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHasEntitlement_Error(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).WillReturnError(errors.New("db down"))

	ok, err := store.HasEntitlement(context.Background(), "u1", "p1")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestGrantFree(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO entitlements .* ON CONFLICT \(user_id, product_id\) DO NOTHING`).
		WithArgs("u1", "p1", domain.EntitlementSourceFree).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO entitlements`).
		WithArgs("u1", "p1", domain.EntitlementSourceFree).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.GrantFree(context.Background(), "u1", "p1"))
	require.NoError(t, store.GrantFree(context.Background(), "u1", "p1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
