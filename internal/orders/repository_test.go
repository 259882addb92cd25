package orders

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-commerce/internal/domain"
)

func newMockRepo(t *testing.T) (*OrderRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewOrderRepository(db), mock
}

func completedOrder() *domain.Order {
	user := "u1"
	return &domain.Order{
		TransactionID: "tx_1",
		UserID:        &user,
		Status:        domain.OrderStatusCompleted,
		Total:         decimal.RequireFromString("15.00"),
		Currency:      "USD",
		CustomerEmail: "buyer@example.com",
		Items: []domain.OrderItem{
			{ProductID: "p1", Price: decimal.RequireFromString("10.00")},
			{ProductID: "p2", Price: decimal.RequireFromString("5.00")},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestSaveCompleted_FirstDelivery(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO orders .* ON CONFLICT \(transaction_id\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "inserted"}).
			AddRow("order-1", "completed", true))
	mock.ExpectExec(`INSERT INTO order_items .* ON CONFLICT \(order_id, product_id\) DO NOTHING`).
		WithArgs(sqlmock.AnyArg(), "order-1", "p1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO order_items`).
		WithArgs(sqlmock.AnyArg(), "order-1", "p2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order := completedOrder()
	created, inserted, err := repo.SaveCompleted(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, "order-1", order.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveCompleted_Redelivery(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "inserted"}).
			AddRow("order-1", "completed", false))
	mock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	created, inserted, err := repo.SaveCompleted(context.Background(), completedOrder())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 0, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveCompleted_KeepsRefundedStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "inserted"}).
			AddRow("order-1", "refunded", false))
	mock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	order := completedOrder()
	_, _, err := repo.SaveCompleted(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusRefunded, order.Status)
}

func TestSaveCompleted_ItemFailureRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "inserted"}).
			AddRow("order-1", "completed", true))
	mock.ExpectExec(`INSERT INTO order_items`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := repo.SaveCompleted(context.Background(), completedOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert order item p1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRefunded(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO orders .* ON CONFLICT \(transaction_id\) DO UPDATE SET status = EXCLUDED.status`).
		WithArgs(sqlmock.AnyArg(), "tx_1", domain.OrderStatusRefunded, "XXX").
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false))

	found, err := repo.MarkRefunded(context.Background(), "tx_1")
	require.NoError(t, err)
	assert.True(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRefunded_BeforeCompletionLeavesPlaceholder(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO orders`).
		WithArgs(sqlmock.AnyArg(), "tx_early", domain.OrderStatusRefunded, "XXX").
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))

	// The completion then meets the refunded row and keeps its status.
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO orders .* status = CASE WHEN orders.status = 'refunded' THEN orders.status`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "inserted"}).
			AddRow("order-1", "refunded", false))
	mock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	found, err := repo.MarkRefunded(context.Background(), "tx_early")
	require.NoError(t, err)
	assert.False(t, found)

	order := completedOrder()
	order.TransactionID = "tx_early"
	created, inserted, err := repo.SaveCompleted(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, domain.OrderStatusRefunded, order.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRefunded_Error(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO orders`).WillReturnError(errors.New("connection reset"))

	_, err := repo.MarkRefunded(context.Background(), "tx_1")
	require.Error(t, err)
}

func TestGetByTransactionID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM orders`).WithArgs("tx_missing").WillReturnError(sql.ErrNoRows)

	order, err := repo.GetByTransactionID(context.Background(), "tx_missing")
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestGetByTransactionID_LoadsItems(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`FROM orders`).WithArgs("tx_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "transaction_id", "user_id", "status", "total", "currency", "customer_email", "created_at"}).
			AddRow("order-1", "tx_1", nil, "completed", "15.00", "USD", "buyer@example.com", created))
	mock.ExpectQuery(`FROM order_items`).WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "price"}).
			AddRow("p1", "10.00").
			AddRow("p2", "5.00"))

	order, err := repo.GetByTransactionID(context.Background(), "tx_1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Nil(t, order.UserID)
	assert.Equal(t, domain.OrderStatusCompleted, order.Status)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("15")))
	require.Len(t, order.Items, 2)
	assert.Equal(t, "p2", order.Items[1].ProductID)
}

func TestListByUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM orders\s+WHERE user_id = \$1`).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "transaction_id", "status", "total", "currency", "customer_email", "created_at"}).
			AddRow("order-2", "tx_2", "completed", "5.00", "USD", "", now).
			AddRow("order-1", "tx_1", "refunded", "10.00", "USD", "buyer@example.com", now.Add(-time.Hour)))
	mock.ExpectQuery(`FROM order_items\s+WHERE order_id = ANY`).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "product_id", "price"}).
			AddRow("order-1", "p1", "10.00").
			AddRow("order-2", "p2", "5.00"))

	got, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "order-2", got[0].ID)
	assert.Equal(t, "p2", got[0].Items[0].ProductID)
	assert.Equal(t, domain.OrderStatusRefunded, got[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUser_Empty(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM orders`).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "transaction_id", "status", "total", "currency", "customer_email", "created_at"}))

	got, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
