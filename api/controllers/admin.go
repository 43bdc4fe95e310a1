package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/internal/merchants"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type createProductRequest struct {
	Name             string     `json:"name" validate:"required,max=200"`
	Description      *string    `json:"description,omitempty"`
	Price            int        `json:"price" validate:"required,min=1"`
	PromotionalPrice *int       `json:"promotional_price,omitempty" validate:"omitempty,min=0"`
	PromoStartsOn    *string    `json:"promo_starts_on,omitempty"`
	PromoEndsOn      *string    `json:"promo_ends_on,omitempty"`
	CategoryID       *uuid.UUID `json:"category_id,omitempty"`
	IsActive         *bool      `json:"is_active,omitempty"`
}

type createCouponRequest struct {
	Label      string          `json:"label" validate:"required,max=200"`
	Code       string          `json:"code" validate:"required,max=64"`
	Discount   decimal.Decimal `json:"discount"`
	ExpiresOn  string          `json:"expires_on" validate:"required"`
	MaxUses    *int            `json:"max_uses,omitempty" validate:"omitempty,min=1"`
	IsActive   *bool           `json:"is_active,omitempty"`
	ProductIDs []uuid.UUID     `json:"product_ids,omitempty"`
}

func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := decodeProductInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func decodeProductInput(r *http.Request) (catalog.CreateProductInput, error) {
	var body createProductRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return catalog.CreateProductInput{}, err
	}
	startsOn, err := validators.ParseOptionalDate("promo_starts_on", body.PromoStartsOn)
	if err != nil {
		return catalog.CreateProductInput{}, err
	}
	endsOn, err := validators.ParseOptionalDate("promo_ends_on", body.PromoEndsOn)
	if err != nil {
		return catalog.CreateProductInput{}, err
	}
	return catalog.CreateProductInput{
		Name:             body.Name,
		Description:      body.Description,
		Price:            body.Price,
		PromotionalPrice: body.PromotionalPrice,
		PromoStartsOn:    startsOn,
		PromoEndsOn:      endsOn,
		CategoryID:       body.CategoryID,
		IsActive:         boolOr(body.IsActive, true),
	}, nil
}

func AdminCreateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createCouponRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		expiresOn, err := time.Parse(validators.DateLayout, body.ExpiresOn)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "date must be formatted YYYY-MM-DD").
				WithDetails(map[string]any{"field": "expires_on"}))
			return
		}

		coupon, err := svc.Create(r.Context(), coupons.CreateCouponInput{
			Label:      body.Label,
			Code:       body.Code,
			Discount:   body.Discount,
			ExpiresOn:  expiresOn,
			MaxUses:    body.MaxUses,
			IsActive:   boolOr(body.IsActive, true),
			ProductIDs: body.ProductIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}

func AdminCreateMerchantCategory(svc merchants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body merchants.CreateCategoryInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.CreateCategory(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

func AdminCreateProductCategory(svc merchants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body merchants.CreateProductCategoryInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.CreateProductCategory(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}
