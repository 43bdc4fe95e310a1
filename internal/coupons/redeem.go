package coupons

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Redeemable checks a coupon against today and the products in a cart. The
// product restriction is only binding when enforceRestriction is set.
func Redeemable(c models.Coupon, today time.Time, productIDs []uuid.UUID, enforceRestriction bool) error {
	if !c.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon is not active")
	}
	if dateOnly(today).After(dateOnly(c.ExpiresOn)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon has expired")
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon usage limit reached")
	}
	if enforceRestriction && len(c.Products) > 0 && !anyRestricted(c.Products, productIDs) {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon does not apply to any product in the cart")
	}
	return nil
}

func anyRestricted(restricted []models.Product, productIDs []uuid.UUID) bool {
	allowed := make(map[uuid.UUID]struct{}, len(restricted))
	for _, p := range restricted {
		allowed[p.ID] = struct{}{}
	}
	for _, id := range productIDs {
		if _, ok := allowed[id]; ok {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
