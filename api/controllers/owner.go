package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// cartOwner builds the explicit cart owner from the authenticated customer and
// the anonymous session bound by middleware.
func cartOwner(r *http.Request) (cart.Owner, error) {
	owner := cart.Owner{SessionKey: middleware.SessionKeyFromContext(r.Context())}
	if raw := middleware.CustomerIDFromContext(r.Context()); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return cart.Owner{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid customer id")
		}
		owner.CustomerID = &id
	}
	return owner, nil
}

func customerIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.CustomerIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid customer id")
	}
	return id, nil
}
