package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service converts a cart into an order.
type Service interface {
	Checkout(ctx context.Context, owner cart.Owner, input Input) (*Result, error)
}

// Input carries the payment references supplied by the client.
type Input struct {
	CartID        uuid.UUID
	TransactionID string
	PaymentID     *string
	NotifyURL     string
	ReturnURL     string
}

// Result describes the created order.
type Result struct {
	OrderID        uuid.UUID         `json:"order_id"`
	Status         enums.OrderStatus `json:"status"`
	SubtotalPrice  int               `json:"subtotal_price"`
	DiscountAmount int               `json:"discount_amount"`
	TotalPrice     int               `json:"total_price"`
	CouponCode     *string           `json:"coupon_code,omitempty"`
	TransactionID  string            `json:"transaction_id"`
	ReturnURL      string            `json:"return_url"`
	ItemCount      int               `json:"item_count"`
}

type ServiceParams struct {
	TxRunner   txRunner
	Repository *Repository
	Coupons    *coupons.Repository
	Outbox     outbox.Emitter
	Metrics    *metrics.CheckoutMetrics
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	tx      txRunner
	repo    *Repository
	coupons *coupons.Repository
	outbox  outbox.Emitter
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:      params.TxRunner,
		repo:    params.Repository,
		coupons: params.Coupons,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

// Checkout prices the cart, creates the order, moves the line items onto it,
// consumes the coupon, queues order_created and deletes the cart, all in one
// transaction. Any persistence failure rolls the whole conversion back.
func (s *service) Checkout(ctx context.Context, owner cart.Owner, input Input) (*Result, error) {
	result, err := s.checkout(ctx, owner, input)
	if err != nil {
		s.metrics.Failed(string(pkgerrors.CodeOf(err)))
		if s.logg != nil {
			logCtx := s.logg.WithCartID(ctx, input.CartID.String())
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "checkout failed")
		}
		return nil, err
	}
	s.metrics.Completed(result.TotalPrice)
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, result.OrderID.String())
		s.logg.Info(s.logg.WithField(logCtx, "total_price", result.TotalPrice), "checkout completed")
	}
	return result, nil
}

func (s *service) checkout(ctx context.Context, owner cart.Owner, input Input) (*Result, error) {
	if !owner.IsCustomer() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout requires a signed-in customer")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		c, err := repo.LockCart(ctx, input.CartID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return err
		}
		if !owner.Owns(*c) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		if cart.IsEmpty(*c) {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		today := s.now()
		subtotal := cart.Total(*c, today)
		total := cart.TotalWithCoupon(*c, today)

		order := &models.Order{
			CustomerID:     *owner.CustomerID,
			SubtotalPrice:  subtotal,
			DiscountAmount: subtotal - total,
			TotalPrice:     total,
			TransactionID:  strings.TrimSpace(input.TransactionID),
			PaymentID:      input.PaymentID,
			NotifyURL:      input.NotifyURL,
			ReturnURL:      input.ReturnURL,
			Status:         enums.OrderStatusActive,
		}
		if c.Coupon != nil {
			code := c.Coupon.Code
			order.CouponCode = &code
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}

		items := make([]outbox.OrderCreatedItem, 0, len(c.Items))
		for _, item := range c.Items {
			unitPrice := catalog.EffectivePrice(item.Product, today)
			if err := repo.MoveItem(ctx, item.ID, order.ID, unitPrice); err != nil {
				return err
			}
			items = append(items, outbox.OrderCreatedItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: unitPrice,
			})
		}

		if c.CouponID != nil {
			consumed, err := s.coupons.WithTx(tx).IncrementUsage(ctx, *c.CouponID)
			if err != nil {
				return err
			}
			if !consumed {
				return pkgerrors.New(pkgerrors.CodeValidation, "coupon usage limit reached")
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{CustomerID: order.CustomerID},
			Data: outbox.OrderCreatedEvent{
				OrderID:        order.ID,
				CustomerID:     order.CustomerID,
				TransactionID:  order.TransactionID,
				PaymentID:      order.PaymentID,
				SubtotalPrice:  order.SubtotalPrice,
				DiscountAmount: order.DiscountAmount,
				TotalPrice:     order.TotalPrice,
				CouponCode:     order.CouponCode,
				NotifyURL:      order.NotifyURL,
				Items:          items,
			},
			OccurredAt: today,
		}); err != nil {
			return err
		}

		if err := repo.DeleteCart(ctx, c.ID); err != nil {
			return err
		}

		result = &Result{
			OrderID:        order.ID,
			Status:         order.Status,
			SubtotalPrice:  order.SubtotalPrice,
			DiscountAmount: order.DiscountAmount,
			TotalPrice:     order.TotalPrice,
			CouponCode:     order.CouponCode,
			TransactionID:  order.TransactionID,
			ReturnURL:      order.ReturnURL,
			ItemCount:      len(items),
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransactionAborted, err, "checkout could not be completed")
	}
	return result, nil
}

func validateInput(input Input) error {
	if input.CartID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	if strings.TrimSpace(input.TransactionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction_id is required")
	}
	for field, raw := range map[string]string{"notify_url": input.NotifyURL, "return_url": input.ReturnURL} {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid url").
				WithDetails(map[string]any{"field": field})
		}
	}
	return nil
}
