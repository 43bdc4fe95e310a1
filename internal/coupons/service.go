package coupons

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Service exposes coupon lookup and admin creation.
type Service interface {
	FindRedeemable(ctx context.Context, code string, today time.Time, productIDs []uuid.UUID) (*models.Coupon, error)
	Create(ctx context.Context, input CreateCouponInput) (*CouponDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CouponDTO, error)
}

// CreateCouponInput holds the validated admin payload for a new coupon.
type CreateCouponInput struct {
	Label      string
	Code       string
	Discount   decimal.Decimal
	ExpiresOn  time.Time
	MaxUses    *int
	IsActive   bool
	ProductIDs []uuid.UUID
}

type CouponDTO struct {
	ID         uuid.UUID       `json:"id"`
	Label      string          `json:"label"`
	Code       string          `json:"code"`
	Discount   decimal.Decimal `json:"discount"`
	ExpiresOn  string          `json:"expires_on"`
	MaxUses    *int            `json:"max_uses,omitempty"`
	UsedCount  int             `json:"used_count"`
	IsActive   bool            `json:"is_active"`
	ProductIDs []uuid.UUID     `json:"product_ids"`
}

func NewCouponDTO(c models.Coupon) CouponDTO {
	ids := make([]uuid.UUID, 0, len(c.Products))
	for _, p := range c.Products {
		ids = append(ids, p.ID)
	}
	return CouponDTO{
		ID:         c.ID,
		Label:      c.Label,
		Code:       c.Code,
		Discount:   c.Discount,
		ExpiresOn:  c.ExpiresOn.Format("2006-01-02"),
		MaxUses:    c.MaxUses,
		UsedCount:  c.UsedCount,
		IsActive:   c.IsActive,
		ProductIDs: ids,
	}
}

type productLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo               *Repository
	products           productLoader
	enforceRestriction bool
}

func NewService(repo *Repository, products productLoader, enforceRestriction bool) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products, enforceRestriction: enforceRestriction}, nil
}

// FindRedeemable looks up code exactly and returns it when it can be applied
// today to a cart holding productIDs.
func (s *service) FindRedeemable(ctx context.Context, code string, today time.Time, productIDs []uuid.UUID) (*models.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	if err := Redeemable(*coupon, today, productIDs, s.enforceRestriction); err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *service) Create(ctx context.Context, input CreateCouponInput) (*CouponDTO, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Label = strings.TrimSpace(input.Label)
	if input.Code == "" || input.Label == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "label and code are required")
	}
	if input.Discount.IsNegative() || input.Discount.GreaterThan(decimal.NewFromInt(1)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount must be between 0 and 1")
	}
	if input.ExpiresOn.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expires_on is required")
	}
	if input.MaxUses != nil && *input.MaxUses < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_uses cannot be negative")
	}

	restricted := make([]models.Product, 0, len(input.ProductIDs))
	for _, id := range input.ProductIDs {
		product, err := s.products.Get(ctx, id)
		if err != nil {
			if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "restricted product does not exist").
					WithDetails(map[string]any{"product_id": id})
			}
			return nil, err
		}
		restricted = append(restricted, *product)
	}

	coupon := &models.Coupon{
		Label:     input.Label,
		Code:      input.Code,
		IsActive:  input.IsActive,
		ExpiresOn: input.ExpiresOn,
		Discount:  input.Discount,
		MaxUses:   input.MaxUses,
		Products:  restricted,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "ux_coupons_code", "coupons.code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create coupon")
	}
	dto := NewCouponDTO(*coupon)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CouponDTO, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	dto := NewCouponDTO(*coupon)
	return &dto, nil
}
