package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func newID() uuid.UUID { return uuid.New() }

type fixture struct {
	svc  Service
	conn *gorm.DB
}

func newFixture(t *testing.T, enforceRestriction bool) fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	now := func() time.Time { return time.Now().UTC() }

	products, err := catalog.NewService(catalog.NewRepository(conn), now)
	require.NoError(t, err)
	couponSvc, err := coupons.NewService(coupons.NewRepository(conn), products, enforceRestriction)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), client, products, couponSvc, now)
	require.NoError(t, err)
	return fixture{svc: svc, conn: conn}
}

func assertCode(t *testing.T, want pkgerrors.Code, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, pkgerrors.CodeOf(err), err.Error())
}

func TestGetOrCreateIsStablePerOwner(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	customer := dbtest.MustCreateCustomer(t, f.conn)

	first, err := f.svc.GetOrCreate(ctx, Owner{CustomerID: &customer.ID})
	require.NoError(t, err)
	again, err := f.svc.GetOrCreate(ctx, Owner{CustomerID: &customer.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.True(t, again.IsEmpty)

	anon, err := f.svc.GetOrCreate(ctx, Owner{SessionKey: "sess-a"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, anon.ID)

	_, err = f.svc.GetOrCreate(ctx, Owner{})
	assertCode(t, pkgerrors.CodeValidation, err)
}

func TestAddOrUpdateItemReplacesQuantity(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	owner := Owner{SessionKey: "sess-b"}
	cheap := dbtest.MustCreateProduct(t, f.conn, 1000)
	pricey := dbtest.MustCreateProduct(t, f.conn, 2000)

	c, err := f.svc.GetOrCreate(ctx, owner)
	require.NoError(t, err)

	_, err = f.svc.AddOrUpdateItem(ctx, owner, c.ID, cheap.ID, 5)
	require.NoError(t, err)
	_, err = f.svc.AddOrUpdateItem(ctx, owner, c.ID, cheap.ID, 2)
	require.NoError(t, err)
	summary, err := f.svc.AddOrUpdateItem(ctx, owner, c.ID, pricey.ID, 1)
	require.NoError(t, err)

	require.Len(t, summary.Items, 2)
	assert.Equal(t, 2, summary.Items[0].Quantity)
	assert.Equal(t, 4000, summary.Total)
	assert.Equal(t, 4000, summary.TotalWithCoupon)
	assert.False(t, summary.IsEmpty)
}

func TestAddOrUpdateItemRejectsBadInput(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	owner := Owner{SessionKey: "sess-c"}
	inactive := dbtest.MustCreateProduct(t, f.conn, 1000, func(p *models.Product) { p.IsActive = false })
	product := dbtest.MustCreateProduct(t, f.conn, 1000)

	c, err := f.svc.GetOrCreate(ctx, owner)
	require.NoError(t, err)

	_, err = f.svc.AddOrUpdateItem(ctx, owner, c.ID, product.ID, 0)
	assertCode(t, pkgerrors.CodeValidation, err)
	_, err = f.svc.AddOrUpdateItem(ctx, owner, c.ID, inactive.ID, 1)
	assertCode(t, pkgerrors.CodeValidation, err)
	_, err = f.svc.AddOrUpdateItem(ctx, owner, c.ID, uuid.New(), 1)
	assertCode(t, pkgerrors.CodeValidation, err)
	_, err = f.svc.AddOrUpdateItem(ctx, owner, uuid.New(), product.ID, 1)
	assertCode(t, pkgerrors.CodeNotFound, err)
}

func TestCartIsHiddenFromOtherOwners(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	product := dbtest.MustCreateProduct(t, f.conn, 1000)
	mine := Owner{SessionKey: "mine"}

	c, err := f.svc.GetOrCreate(ctx, mine)
	require.NoError(t, err)

	_, err = f.svc.AddOrUpdateItem(ctx, Owner{SessionKey: "theirs"}, c.ID, product.ID, 1)
	assertCode(t, pkgerrors.CodeNotFound, err)
	stranger := uuid.New()
	_, err = f.svc.Summary(ctx, Owner{CustomerID: &stranger}, c.ID)
	assertCode(t, pkgerrors.CodeNotFound, err)
}

func TestUpdateQuantityAndRemoveItem(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	owner := Owner{SessionKey: "sess-d"}
	product := dbtest.MustCreateProduct(t, f.conn, 1500)
	other := dbtest.MustCreateProduct(t, f.conn, 100)

	c, err := f.svc.GetOrCreate(ctx, owner)
	require.NoError(t, err)
	summary, err := f.svc.AddOrUpdateItem(ctx, owner, c.ID, product.ID, 1)
	require.NoError(t, err)
	lineID := summary.Items[0].ID

	summary, err = f.svc.UpdateQuantity(ctx, owner, c.ID, product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 4500, summary.Total)

	_, err = f.svc.UpdateQuantity(ctx, owner, c.ID, other.ID, 3)
	assertCode(t, pkgerrors.CodeNotFound, err)
	_, err = f.svc.UpdateQuantity(ctx, owner, c.ID, product.ID, -1)
	assertCode(t, pkgerrors.CodeValidation, err)

	_, err = f.svc.RemoveItem(ctx, owner, c.ID, uuid.New())
	assertCode(t, pkgerrors.CodeNotFound, err)

	summary, err = f.svc.RemoveItem(ctx, owner, c.ID, lineID)
	require.NoError(t, err)
	assert.True(t, summary.IsEmpty)
	assert.Equal(t, 0, summary.Total)
}

func TestApplyCoupon(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	owner := Owner{SessionKey: "sess-e"}
	product := dbtest.MustCreateProduct(t, f.conn, 1000)
	dbtest.MustCreateCoupon(t, f.conn, "TWENTY", "0.2")
	dbtest.MustCreateCoupon(t, f.conn, "EXPIRED", "0.5", func(c *models.Coupon) {
		c.ExpiresOn = time.Now().UTC().AddDate(0, 0, -2)
	})
	dbtest.MustCreateCoupon(t, f.conn, "OFF", "0.5", func(c *models.Coupon) { c.IsActive = false })

	c, err := f.svc.GetOrCreate(ctx, owner)
	require.NoError(t, err)
	_, err = f.svc.AddOrUpdateItem(ctx, owner, c.ID, product.ID, 2)
	require.NoError(t, err)

	summary, err := f.svc.ApplyCoupon(ctx, owner, c.ID, "TWENTY")
	require.NoError(t, err)
	require.NotNil(t, summary.Coupon)
	assert.Equal(t, 2000, summary.Total)
	assert.Equal(t, 1600, summary.TotalWithCoupon)
	assert.Equal(t, 400, summary.DiscountAmount)

	_, err = f.svc.ApplyCoupon(ctx, owner, c.ID, "EXPIRED")
	assertCode(t, pkgerrors.CodeValidation, err)
	_, err = f.svc.ApplyCoupon(ctx, owner, c.ID, "OFF")
	assertCode(t, pkgerrors.CodeValidation, err)
	_, err = f.svc.ApplyCoupon(ctx, owner, c.ID, "NOPE")
	assertCode(t, pkgerrors.CodeNotFound, err)

	unchanged, err := f.svc.Summary(ctx, owner, c.ID)
	require.NoError(t, err)
	require.NotNil(t, unchanged.Coupon)
	assert.Equal(t, "TWENTY", unchanged.Coupon.Code)

	cleared, err := f.svc.RemoveCoupon(ctx, owner, c.ID)
	require.NoError(t, err)
	assert.Nil(t, cleared.Coupon)
	assert.Equal(t, 2000, cleared.TotalWithCoupon)
}

func TestApplyCouponHonoursRestrictionWhenEnforced(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	owner := Owner{SessionKey: "sess-f"}
	inCart := dbtest.MustCreateProduct(t, f.conn, 1000)
	elsewhere := dbtest.MustCreateProduct(t, f.conn, 1000)
	dbtest.MustCreateCoupon(t, f.conn, "ONLY", "0.5", func(c *models.Coupon) {
		c.Products = []models.Product{*elsewhere}
	})

	c, err := f.svc.GetOrCreate(ctx, owner)
	require.NoError(t, err)
	_, err = f.svc.AddOrUpdateItem(ctx, owner, c.ID, inCart.ID, 1)
	require.NoError(t, err)

	_, err = f.svc.ApplyCoupon(ctx, owner, c.ID, "ONLY")
	assertCode(t, pkgerrors.CodeValidation, err)

	_, err = f.svc.AddOrUpdateItem(ctx, owner, c.ID, elsewhere.ID, 1)
	require.NoError(t, err)
	summary, err := f.svc.ApplyCoupon(ctx, owner, c.ID, "ONLY")
	require.NoError(t, err)
	assert.Equal(t, 1000, summary.TotalWithCoupon)
}

func TestClaimSessionCart(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	customer := dbtest.MustCreateCustomer(t, f.conn)
	product := dbtest.MustCreateProduct(t, f.conn, 1000)
	anon := Owner{SessionKey: "sess-g"}

	c, err := f.svc.GetOrCreate(ctx, anon)
	require.NoError(t, err)
	_, err = f.svc.AddOrUpdateItem(ctx, anon, c.ID, product.ID, 1)
	require.NoError(t, err)

	claimed, err := f.svc.ClaimSessionCart(ctx, "sess-g", customer.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	summary, err := f.svc.GetOrCreate(ctx, Owner{CustomerID: &customer.ID})
	require.NoError(t, err)
	assert.Equal(t, c.ID, summary.ID)
	assert.Len(t, summary.Items, 1)

	_, err = f.svc.Summary(ctx, anon, c.ID)
	assertCode(t, pkgerrors.CodeNotFound, err)

	claimed, err = f.svc.ClaimSessionCart(ctx, "sess-unknown", customer.ID)
	require.NoError(t, err)
	assert.False(t, claimed)
}
