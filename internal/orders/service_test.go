package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

func mustCreateOrder(t *testing.T, conn *gorm.DB, customerID uuid.UUID, total int, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		CustomerID:    customerID,
		SubtotalPrice: total,
		TotalPrice:    total,
		TransactionID: "txn-" + uuid.NewString(),
		NotifyURL:     "https://shop.example.com/notify",
		ReturnURL:     "https://shop.example.com/return",
		CreatedAt:     createdAt,
	}
	require.NoError(t, conn.Omit("Items").Create(order).Error)
	return order
}

func TestListForCustomerPaginatesNewestFirst(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	customer := dbtest.MustCreateCustomer(t, conn)
	other := dbtest.MustCreateCustomer(t, conn)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var created []*models.Order
	for i := 0; i < 3; i++ {
		created = append(created, mustCreateOrder(t, conn, customer.ID, 1000*(i+1), base.Add(time.Duration(i)*time.Hour)))
	}
	mustCreateOrder(t, conn, other.ID, 999, base.Add(10*time.Hour))

	ctx := context.Background()
	first, err := svc.ListForCustomer(ctx, customer.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, created[2].ID, first.Items[0].ID)
	assert.Equal(t, created[1].ID, first.Items[1].ID)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListForCustomer(ctx, customer.ID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, created[0].ID, second.Items[0].ID)
	assert.Empty(t, second.NextCursor)

	_, err = svc.ListForCustomer(ctx, customer.ID, pagination.Params{Cursor: "%%%"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestGetForCustomerIncludesItems(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	customer := dbtest.MustCreateCustomer(t, conn)
	product := dbtest.MustCreateProduct(t, conn, 1000)
	order := mustCreateOrder(t, conn, customer.ID, 2000, time.Now().UTC())
	unit := 1000
	require.NoError(t, conn.Omit("Product").Create(&models.LineItem{OrderID: &order.ID, ProductID: product.ID, Quantity: 2, UnitPrice: &unit}).Error)

	got, err := svc.GetForCustomer(context.Background(), customer.ID, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, product.Name, got.Items[0].ProductName)
	assert.Equal(t, 2000, got.Items[0].LineTotal)
	assert.Equal(t, 2, got.ItemCount)
}

func TestGetForCustomerHidesForeignOrders(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	owner := dbtest.MustCreateCustomer(t, conn)
	order := mustCreateOrder(t, conn, owner.ID, 500, time.Now().UTC())

	_, err = svc.GetForCustomer(context.Background(), uuid.New(), order.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = svc.GetForCustomer(context.Background(), owner.ID, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
