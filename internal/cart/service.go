package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Service exposes cart operations. Every call names its owner explicitly.
type Service interface {
	GetOrCreate(ctx context.Context, owner Owner) (*Summary, error)
	Summary(ctx context.Context, owner Owner, cartID uuid.UUID) (*Summary, error)
	AddOrUpdateItem(ctx context.Context, owner Owner, cartID, productID uuid.UUID, quantity int) (*Summary, error)
	UpdateQuantity(ctx context.Context, owner Owner, cartID, productID uuid.UUID, quantity int) (*Summary, error)
	RemoveItem(ctx context.Context, owner Owner, cartID, lineItemID uuid.UUID) (*Summary, error)
	ApplyCoupon(ctx context.Context, owner Owner, cartID uuid.UUID, code string) (*Summary, error)
	RemoveCoupon(ctx context.Context, owner Owner, cartID uuid.UUID) (*Summary, error)
	ClaimSessionCart(ctx context.Context, sessionKey string, customerID uuid.UUID) (bool, error)
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
	coupons  couponFinder
	now      func() time.Time
}

// NewService builds a cart service. now defaults to time.Now.
func NewService(repo CartRepository, tx txRunner, products productLoader, coupons couponFinder, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon finder required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, tx: tx, products: products, coupons: coupons, now: now}, nil
}

func (s *service) GetOrCreate(ctx context.Context, owner Owner) (*Summary, error) {
	if owner.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}

	existing, err := s.findForOwner(ctx, owner)
	if err == nil {
		return s.summarize(*existing), nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	c := &models.Cart{}
	if owner.IsCustomer() {
		id := *owner.CustomerID
		c.CustomerID = &id
	}
	if key := strings.TrimSpace(owner.SessionKey); key != "" {
		c.SessionKey = &key
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
	}
	return s.summarize(*c), nil
}

func (s *service) findForOwner(ctx context.Context, owner Owner) (*models.Cart, error) {
	if owner.IsCustomer() {
		return s.repo.FindByCustomer(ctx, *owner.CustomerID)
	}
	return s.repo.FindBySession(ctx, strings.TrimSpace(owner.SessionKey))
}

func (s *service) Summary(ctx context.Context, owner Owner, cartID uuid.UUID) (*Summary, error) {
	c, err := loadOwned(ctx, s.repo, owner, cartID)
	if err != nil {
		return nil, err
	}
	return s.summarize(*c), nil
}

// AddOrUpdateItem puts productID in the cart. An existing line for the same
// product has its quantity replaced, not incremented.
func (s *service) AddOrUpdateItem(ctx context.Context, owner Owner, cartID, productID uuid.UUID, quantity int) (*Summary, error) {
	if quantity <= 0 {
		return nil, quantityError(quantity)
	}
	if _, err := loadOwned(ctx, s.repo, owner, cartID); err != nil {
		return nil, err
	}
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
				WithDetails(map[string]any{"product_id": productID})
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
			WithDetails(map[string]any{"product_id": productID})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updated, err := repo.SetItemQuantity(ctx, cartID, productID, quantity)
		if err != nil || updated {
			return err
		}
		return repo.CreateItem(ctx, &models.LineItem{CartID: &cartID, ProductID: productID, Quantity: quantity})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart item")
	}
	return s.reload(ctx, cartID)
}

func (s *service) UpdateQuantity(ctx context.Context, owner Owner, cartID, productID uuid.UUID, quantity int) (*Summary, error) {
	if quantity <= 0 {
		return nil, quantityError(quantity)
	}
	if _, err := loadOwned(ctx, s.repo, owner, cartID); err != nil {
		return nil, err
	}
	updated, err := s.repo.SetItemQuantity(ctx, cartID, productID, quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart")
	}
	return s.reload(ctx, cartID)
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, cartID, lineItemID uuid.UUID) (*Summary, error) {
	if _, err := loadOwned(ctx, s.repo, owner, cartID); err != nil {
		return nil, err
	}
	deleted, err := s.repo.DeleteItem(ctx, cartID, lineItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	if !deleted {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "line item not found in cart")
	}
	return s.reload(ctx, cartID)
}

// ApplyCoupon assigns a redeemable coupon. A rejected code leaves the cart's
// current coupon untouched.
func (s *service) ApplyCoupon(ctx context.Context, owner Owner, cartID uuid.UUID, code string) (*Summary, error) {
	c, err := loadOwned(ctx, s.repo, owner, cartID)
	if err != nil {
		return nil, err
	}
	productIDs := make([]uuid.UUID, 0, len(c.Items))
	for _, item := range c.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	coupon, err := s.coupons.FindRedeemable(ctx, code, s.now(), productIDs)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetCoupon(ctx, cartID, &coupon.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply coupon")
	}
	return s.reload(ctx, cartID)
}

func (s *service) RemoveCoupon(ctx context.Context, owner Owner, cartID uuid.UUID) (*Summary, error) {
	if _, err := loadOwned(ctx, s.repo, owner, cartID); err != nil {
		return nil, err
	}
	if err := s.repo.SetCoupon(ctx, cartID, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove coupon")
	}
	return s.reload(ctx, cartID)
}

// ClaimSessionCart hands an anonymous session cart to customerID at login,
// unless the customer already has a cart of their own.
func (s *service) ClaimSessionCart(ctx context.Context, sessionKey string, customerID uuid.UUID) (bool, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" || customerID == uuid.Nil {
		return false, nil
	}
	claimed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByCustomer(ctx, customerID); err == nil {
			return nil
		} else if !db.IsNotFound(err) {
			return err
		}
		sessionCart, err := repo.FindBySession(ctx, sessionKey)
		if err != nil {
			if db.IsNotFound(err) {
				return nil
			}
			return err
		}
		if err := repo.AttachCustomer(ctx, sessionCart.ID, customerID); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claim session cart")
	}
	return claimed, nil
}

func (s *service) reload(ctx context.Context, cartID uuid.UUID) (*Summary, error) {
	c, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload cart")
	}
	return s.summarize(*c), nil
}

func (s *service) summarize(c models.Cart) *Summary {
	summary := NewSummary(c, s.now())
	return &summary
}

// loadOwned fetches cartID and hides carts that belong to someone else behind
// the same not-found error as a missing cart.
func loadOwned(ctx context.Context, repo CartRepository, owner Owner, cartID uuid.UUID) (*models.Cart, error) {
	if owner.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	c, err := repo.FindByID(ctx, cartID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if !owner.Owns(*c) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return c, nil
}

func quantityError(quantity int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").
		WithDetails(map[string]any{"quantity": quantity})
}
