package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubProducts struct {
	db *gorm.DB
}

func (s stubProducts) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
	}
	return &p, nil
}

func newTestService(t *testing.T, enforce bool) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), stubProducts{db: conn}, enforce)
	require.NoError(t, err)
	return svc, conn
}

func intPtr(v int) *int { return &v }

func TestRedeemable(t *testing.T) {
	today := time.Date(2026, 6, 15, 23, 0, 0, 0, time.UTC)
	productA, productB := uuid.New(), uuid.New()
	base := models.Coupon{
		IsActive:  true,
		ExpiresOn: time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		Discount:  decimal.RequireFromString("0.2"),
	}

	assert.NoError(t, Redeemable(base, today, nil, false), "expiry day is inclusive")

	inactive := base
	inactive.IsActive = false
	assert.Error(t, Redeemable(inactive, today, nil, false))

	expired := base
	expired.ExpiresOn = time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)
	assert.Error(t, Redeemable(expired, today, nil, false))

	exhausted := base
	exhausted.MaxUses = intPtr(2)
	exhausted.UsedCount = 2
	assert.Error(t, Redeemable(exhausted, today, nil, false))

	restricted := base
	restricted.Products = []models.Product{{ID: productA}}
	assert.NoError(t, Redeemable(restricted, today, []uuid.UUID{productB}, false), "restriction is decorative by default")
	assert.Error(t, Redeemable(restricted, today, []uuid.UUID{productB}, true))
	assert.NoError(t, Redeemable(restricted, today, []uuid.UUID{productB, productA}, true))
}

func TestCreateAndFindRedeemable(t *testing.T) {
	svc, conn := newTestService(t, true)
	ctx := context.Background()
	product := dbtest.MustCreateProduct(t, conn, 1000)
	today := time.Now().UTC()

	created, err := svc.Create(ctx, CreateCouponInput{
		Label:      "Summer",
		Code:       "SUMMER20",
		Discount:   decimal.RequireFromString("0.2"),
		ExpiresOn:  today.AddDate(0, 0, 10),
		IsActive:   true,
		ProductIDs: []uuid.UUID{product.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{product.ID}, created.ProductIDs)

	found, err := svc.FindRedeemable(ctx, "SUMMER20", today, []uuid.UUID{product.ID})
	require.NoError(t, err)
	assert.True(t, found.Discount.Equal(decimal.RequireFromString("0.2")))

	_, err = svc.FindRedeemable(ctx, "SUMMER20", today, []uuid.UUID{uuid.New()})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.FindRedeemable(ctx, "summer20", today, nil)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err), "codes match exactly")

	_, err = svc.Create(ctx, CreateCouponInput{
		Label:     "Dup",
		Code:      "SUMMER20",
		Discount:  decimal.RequireFromString("0.1"),
		ExpiresOn: today,
		IsActive:  true,
	})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "SUMMER20", got.Code)
}

func TestCreateCouponValidation(t *testing.T) {
	svc, _ := newTestService(t, false)
	ctx := context.Background()
	expires := time.Now().AddDate(0, 1, 0)

	cases := []CreateCouponInput{
		{Label: "", Code: "X", Discount: decimal.NewFromFloat(0.1), ExpiresOn: expires},
		{Label: "X", Code: "X", Discount: decimal.NewFromFloat(1.5), ExpiresOn: expires},
		{Label: "X", Code: "X", Discount: decimal.NewFromFloat(-0.1), ExpiresOn: expires},
		{Label: "X", Code: "X", Discount: decimal.NewFromFloat(0.1)},
		{Label: "X", Code: "X", Discount: decimal.NewFromFloat(0.1), ExpiresOn: expires, MaxUses: intPtr(-1)},
		{Label: "X", Code: "X", Discount: decimal.NewFromFloat(0.1), ExpiresOn: expires, ProductIDs: []uuid.UUID{uuid.New()}},
	}
	for _, input := range cases {
		_, err := svc.Create(ctx, input)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err), "%+v", input)
	}
}

func TestIncrementUsageRespectsCeiling(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	coupon := dbtest.MustCreateCoupon(t, conn, "ONCE", "0.5", func(c *models.Coupon) { c.MaxUses = intPtr(1) })
	ctx := context.Background()

	ok, err := repo.IncrementUsage(ctx, coupon.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IncrementUsage(ctx, coupon.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err := repo.FindByID(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.UsedCount)
}
