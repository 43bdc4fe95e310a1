package merchants

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T, now time.Time) (Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	clock := func() time.Time { return now }
	products, err := catalog.NewService(catalog.NewRepository(conn), clock)
	require.NoError(t, err)
	svc, err := NewService(client, NewRepository(conn), products, clock)
	require.NoError(t, err)
	return svc, conn
}

func registerInput(categoryID uuid.UUID, name string) RegisterInput {
	return RegisterInput{
		Name:             name,
		CategoryID:       categoryID,
		ContactFirstName: "Amina",
		ContactLastName:  "Diallo",
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	conn := dbtest.Open(t)
	_, err := NewService(nil, NewRepository(conn), nil, nil)
	require.Error(t, err)
}

func TestCreateCategoryGeneratesSlug(t *testing.T) {
	svc, _ := newTestService(t, time.Now())
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, CreateCategoryInput{Name: "Épicerie Fine"})
	require.NoError(t, err)
	assert.Equal(t, "epicerie-fine", category.Slug)

	_, err = svc.CreateCategory(ctx, CreateCategoryInput{Name: "epicerie fine"})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	_, err = svc.CreateCategory(ctx, CreateCategoryInput{Name: "  "})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestProductCategoriesFilterByMerchantCategory(t *testing.T) {
	svc, _ := newTestService(t, time.Now())
	ctx := context.Background()
	food, err := svc.CreateCategory(ctx, CreateCategoryInput{Name: "Food"})
	require.NoError(t, err)

	_, err = svc.CreateProductCategory(ctx, CreateProductCategoryInput{Name: "Spices", MerchantCategoryID: &food.ID})
	require.NoError(t, err)
	_, err = svc.CreateProductCategory(ctx, CreateProductCategoryInput{Name: "Gift Cards"})
	require.NoError(t, err)

	missing := uuid.New()
	_, err = svc.CreateProductCategory(ctx, CreateProductCategoryInput{Name: "Orphans", MerchantCategoryID: &missing})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	all, err := svc.ListProductCategories(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := svc.ListProductCategories(ctx, &food.ID)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "spices", scoped[0].Slug)
}

func TestRegisterSyncsOwnerNameAndAllowsOneMerchant(t *testing.T) {
	svc, conn := newTestService(t, time.Now())
	ctx := context.Background()
	owner := dbtest.MustCreateCustomer(t, conn)
	category := dbtest.MustCreateMerchantCategory(t, conn, "bakery")

	merchant, err := svc.Register(ctx, owner.ID, registerInput(category.ID, "Boulangerie du Coin"))
	require.NoError(t, err)
	assert.Equal(t, "boulangerie-du-coin", merchant.Slug)
	assert.True(t, merchant.IsActive)

	var stored models.Customer
	require.NoError(t, conn.First(&stored, "id = ?", owner.ID).Error)
	assert.Equal(t, "Amina", stored.FirstName)
	assert.Equal(t, "Diallo", stored.LastName)

	_, err = svc.Register(ctx, owner.ID, registerInput(category.ID, "Second Shop"))
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	other := dbtest.MustCreateCustomer(t, conn)
	_, err = svc.Register(ctx, other.ID, registerInput(category.ID, "Boulangerie du coin"))
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	_, err = svc.Register(ctx, other.ID, registerInput(uuid.New(), "Third Shop"))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	got, err := svc.GetBySlug(ctx, "boulangerie-du-coin")
	require.NoError(t, err)
	assert.Equal(t, merchant.ID, got.ID)

	_, err = svc.GetBySlug(ctx, "missing")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestCreateProductRequiresMerchant(t *testing.T) {
	svc, conn := newTestService(t, time.Now())
	ctx := context.Background()
	owner := dbtest.MustCreateCustomer(t, conn)

	_, err := svc.CreateProduct(ctx, owner.ID, catalog.CreateProductInput{Name: "Baguette", Price: 150, IsActive: true})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	merchant := dbtest.MustCreateMerchant(t, conn, owner)
	product, err := svc.CreateProduct(ctx, owner.ID, catalog.CreateProductInput{Name: "Baguette", Price: 150, IsActive: true})
	require.NoError(t, err)
	require.NotNil(t, product.MerchantID)
	assert.Equal(t, merchant.ID, *product.MerchantID)
}

func TestDashboardCountsProductsAndOrders(t *testing.T) {
	now := time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC)
	svc, conn := newTestService(t, now)
	ctx := context.Background()
	owner := dbtest.MustCreateCustomer(t, conn)
	buyer := dbtest.MustCreateCustomer(t, conn)
	merchant := dbtest.MustCreateMerchant(t, conn, owner)
	ours := func(p *models.Product) { p.MerchantID = &merchant.ID }

	bread := dbtest.MustCreateProduct(t, conn, 300, ours)
	cake := dbtest.MustCreateProduct(t, conn, 900, ours)
	foreign := dbtest.MustCreateProduct(t, conn, 500)

	placeOrder := func(at time.Time, products ...*models.Product) {
		t.Helper()
		order := &models.Order{
			CustomerID:    buyer.ID,
			TransactionID: "txn-" + uuid.NewString(),
			NotifyURL:     "https://shop.example.com/notify",
			ReturnURL:     "https://shop.example.com/return",
			CreatedAt:     at,
		}
		require.NoError(t, conn.Omit("Items").Create(order).Error)
		for _, p := range products {
			price := p.Price
			require.NoError(t, conn.Create(&models.LineItem{OrderID: &order.ID, ProductID: p.ID, Quantity: 1, UnitPrice: &price}).Error)
		}
	}
	placeOrder(now.Add(-48*time.Hour), bread, cake)
	placeOrder(now.Add(-time.Hour), bread)
	placeOrder(now.Add(-time.Hour), foreign)
	placeOrder(now.Add(-16*time.Hour), foreign, cake)

	dash, err := svc.Dashboard(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, merchant.ID, dash.Merchant.ID)
	assert.EqualValues(t, 2, dash.TotalProducts)
	assert.EqualValues(t, 3, dash.TotalOrders)
	assert.EqualValues(t, 1, dash.OrdersToday)

	_, err = svc.Dashboard(ctx, buyer.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}
