package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxCouponCodeLength = 64

type cartItemRequest struct {
	Panier   uuid.UUID `json:"panier" validate:"required"`
	Produit  uuid.UUID `json:"produit" validate:"required"`
	Quantite int       `json:"quantite"`
}

type cartItemDeleteRequest struct {
	Panier        uuid.UUID `json:"panier" validate:"required"`
	ProduitPanier uuid.UUID `json:"produit_panier" validate:"required"`
}

type cartCouponRequest struct {
	Panier uuid.UUID `json:"panier" validate:"required"`
	Coupon string    `json:"coupon" validate:"required"`
}

type cartRequest struct {
	Panier uuid.UUID `json:"panier" validate:"required"`
}

// CartGet returns the caller's cart, creating it on first contact.
func CartGet(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteResult(r.Context(), logg, w, nil, err)
			return
		}
		summary, err := svc.GetOrCreate(r.Context(), owner)
		writeCartResult(w, r, logg, summary, err)
	}
}

func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body cartItemRequest
		owner, ok := decodeCartRequest(w, r, logg, &body)
		if !ok {
			return
		}
		summary, err := svc.AddOrUpdateItem(r.Context(), owner, body.Panier, body.Produit, body.Quantite)
		writeCartResult(w, r, logg, summary, err)
	}
}

func CartUpdateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body cartItemRequest
		owner, ok := decodeCartRequest(w, r, logg, &body)
		if !ok {
			return
		}
		summary, err := svc.UpdateQuantity(r.Context(), owner, body.Panier, body.Produit, body.Quantite)
		writeCartResult(w, r, logg, summary, err)
	}
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body cartItemDeleteRequest
		owner, ok := decodeCartRequest(w, r, logg, &body)
		if !ok {
			return
		}
		summary, err := svc.RemoveItem(r.Context(), owner, body.Panier, body.ProduitPanier)
		writeCartResult(w, r, logg, summary, err)
	}
}

func CartApplyCoupon(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body cartCouponRequest
		owner, ok := decodeCartRequest(w, r, logg, &body)
		if !ok {
			return
		}
		code, err := validators.BoundedString("coupon", body.Coupon, maxCouponCodeLength)
		if err == nil && code == "" {
			err = pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
		}
		if err != nil {
			responses.WriteResult(r.Context(), logg, w, nil, err)
			return
		}
		summary, err := svc.ApplyCoupon(r.Context(), owner, body.Panier, code)
		writeCartResult(w, r, logg, summary, err)
	}
}

func CartRemoveCoupon(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body cartRequest
		owner, ok := decodeCartRequest(w, r, logg, &body)
		if !ok {
			return
		}
		summary, err := svc.RemoveCoupon(r.Context(), owner, body.Panier)
		writeCartResult(w, r, logg, summary, err)
	}
}

func decodeCartRequest(w http.ResponseWriter, r *http.Request, logg *logger.Logger, dest any) (cart.Owner, bool) {
	owner, err := cartOwner(r)
	if err == nil {
		err = validators.DecodeJSONBody(r, dest)
	}
	if err != nil {
		responses.WriteResult(r.Context(), logg, w, nil, err)
		return cart.Owner{}, false
	}
	return owner, true
}

func writeCartResult(w http.ResponseWriter, r *http.Request, logg *logger.Logger, summary *cart.Summary, err error) {
	ctx := r.Context()
	if summary != nil && logg != nil {
		ctx = logg.WithCartID(ctx, summary.ID.String())
	}
	if err != nil {
		responses.WriteResult(ctx, logg, w, nil, err)
		return
	}
	responses.WriteResult(ctx, logg, w, summary, nil)
}
