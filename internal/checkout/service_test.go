package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox insert failed")
}

type harness struct {
	svc      Service
	conn     *gorm.DB
	customer *models.Customer
	owner    cart.Owner
}

func newHarness(t *testing.T, emitter outbox.Emitter) harness {
	t.Helper()
	client, conn := dbtest.Client(t)
	if emitter == nil {
		emitter = outbox.NewService(outbox.NewRepository(conn), nil)
	}
	svc, err := NewService(ServiceParams{
		TxRunner:   client,
		Repository: NewRepository(conn),
		Coupons:    coupons.NewRepository(conn),
		Outbox:     emitter,
		Metrics:    metrics.NewCheckoutMetrics(prometheus.NewRegistry()),
		Now:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	customer := dbtest.MustCreateCustomer(t, conn)
	return harness{svc: svc, conn: conn, customer: customer, owner: cart.Owner{CustomerID: &customer.ID}}
}

// seedCart creates a customer cart holding 1000x2 + 2000x1.
func (h harness) seedCart(t *testing.T, coupon *models.Coupon) *models.Cart {
	t.Helper()
	c := &models.Cart{CustomerID: &h.customer.ID}
	if coupon != nil {
		c.CouponID = &coupon.ID
	}
	require.NoError(t, h.conn.Omit("Coupon", "Items").Create(c).Error)
	for _, li := range []struct{ price, qty int }{{1000, 2}, {2000, 1}} {
		product := dbtest.MustCreateProduct(t, h.conn, li.price)
		require.NoError(t, h.conn.Omit("Product").Create(&models.LineItem{CartID: &c.ID, ProductID: product.ID, Quantity: li.qty}).Error)
	}
	return c
}

func validInput(cartID uuid.UUID) Input {
	return Input{
		CartID:        cartID,
		TransactionID: "txn-123",
		NotifyURL:     "https://shop.example.com/notify",
		ReturnURL:     "https://shop.example.com/return",
	}
}

func count(t *testing.T, conn *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := conn.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func TestCheckoutCreatesOrderAndDeletesCart(t *testing.T) {
	h := newHarness(t, nil)
	coupon := dbtest.MustCreateCoupon(t, h.conn, "TWENTY", "0.2")
	c := h.seedCart(t, coupon)

	res, err := h.svc.Checkout(context.Background(), h.owner, validInput(c.ID))
	require.NoError(t, err)
	assert.Equal(t, 4000, res.SubtotalPrice)
	assert.Equal(t, 3200, res.TotalPrice)
	assert.Equal(t, 800, res.DiscountAmount)
	assert.Equal(t, enums.OrderStatusActive, res.Status)
	require.NotNil(t, res.CouponCode)
	assert.Equal(t, "TWENTY", *res.CouponCode)
	assert.Equal(t, 2, res.ItemCount)

	assert.Equal(t, int64(1), count(t, h.conn, &models.Order{}, ""))
	assert.Equal(t, int64(0), count(t, h.conn, &models.Cart{}, "id = ?", c.ID))
	assert.Equal(t, int64(2), count(t, h.conn, &models.LineItem{}, "order_id = ? AND cart_id IS NULL AND unit_price IS NOT NULL", res.OrderID))

	var order models.Order
	require.NoError(t, h.conn.Where("id = ?", res.OrderID).First(&order).Error)
	assert.Equal(t, h.customer.ID, order.CustomerID)
	assert.Equal(t, "txn-123", order.TransactionID)

	var reloaded models.Coupon
	require.NoError(t, h.conn.Where("id = ?", coupon.ID).First(&reloaded).Error)
	assert.Equal(t, 1, reloaded.UsedCount)

	assert.Equal(t, int64(1), count(t, h.conn, &models.OutboxEvent{}, "aggregate_id = ? AND event_type = ?", res.OrderID, enums.EventOrderCreated))
}

func TestCheckoutWithoutCoupon(t *testing.T) {
	h := newHarness(t, nil)
	c := h.seedCart(t, nil)

	res, err := h.svc.Checkout(context.Background(), h.owner, validInput(c.ID))
	require.NoError(t, err)
	assert.Equal(t, 4000, res.TotalPrice)
	assert.Nil(t, res.CouponCode)
}

func TestCheckoutRejectsEmptyMissingAndForeignCarts(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	empty := &models.Cart{CustomerID: &h.customer.ID}
	require.NoError(t, h.conn.Omit("Coupon", "Items").Create(empty).Error)
	_, err := h.svc.Checkout(ctx, h.owner, validInput(empty.ID))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = h.svc.Checkout(ctx, h.owner, validInput(uuid.New()))
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	c := h.seedCart(t, nil)
	stranger := uuid.New()
	_, err = h.svc.Checkout(ctx, cart.Owner{CustomerID: &stranger}, validInput(c.ID))
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = h.svc.Checkout(ctx, cart.Owner{SessionKey: "anon"}, validInput(c.ID))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	assert.Equal(t, int64(0), count(t, h.conn, &models.Order{}, ""))
}

func TestCheckoutValidatesInput(t *testing.T) {
	h := newHarness(t, nil)
	c := h.seedCart(t, nil)

	in := validInput(c.ID)
	in.TransactionID = " "
	_, err := h.svc.Checkout(context.Background(), h.owner, in)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	in = validInput(c.ID)
	in.ReturnURL = "not a url"
	_, err = h.svc.Checkout(context.Background(), h.owner, in)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestCheckoutRollsBackWhenPersistenceFails(t *testing.T) {
	h := newHarness(t, failingEmitter{})
	c := h.seedCart(t, nil)

	_, err := h.svc.Checkout(context.Background(), h.owner, validInput(c.ID))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeTransactionAborted, pkgerrors.CodeOf(err))
	assert.True(t, pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).Retryable)

	assert.Equal(t, int64(0), count(t, h.conn, &models.Order{}, ""))
	assert.Equal(t, int64(1), count(t, h.conn, &models.Cart{}, "id = ?", c.ID))
	assert.Equal(t, int64(2), count(t, h.conn, &models.LineItem{}, "cart_id = ? AND order_id IS NULL", c.ID))
}

func TestCheckoutFailsWhenCouponExhausted(t *testing.T) {
	h := newHarness(t, nil)
	limit := 1
	coupon := dbtest.MustCreateCoupon(t, h.conn, "ONCE", "0.5", func(c *models.Coupon) {
		c.MaxUses = &limit
		c.UsedCount = 1
	})
	c := h.seedCart(t, coupon)

	_, err := h.svc.Checkout(context.Background(), h.owner, validInput(c.ID))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Equal(t, int64(0), count(t, h.conn, &models.Order{}, ""))
	assert.Equal(t, int64(1), count(t, h.conn, &models.Cart{}, "id = ?", c.ID))
}

func TestSecondCheckoutOfSameCartFails(t *testing.T) {
	h := newHarness(t, nil)
	c := h.seedCart(t, nil)

	_, err := h.svc.Checkout(context.Background(), h.owner, validInput(c.ID))
	require.NoError(t, err)
	_, err = h.svc.Checkout(context.Background(), h.owner, validInput(c.ID))
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	assert.Equal(t, int64(1), count(t, h.conn, &models.Order{}, ""))
}
