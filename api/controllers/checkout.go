package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type checkoutRequest struct {
	Panier        uuid.UUID `json:"panier" validate:"required"`
	TransactionID string    `json:"transaction_id" validate:"required,max=255"`
	PaymentID     *string   `json:"payment_id,omitempty" validate:"omitempty,max=255"`
	NotifyURL     string    `json:"notify_url" validate:"required,url"`
	ReturnURL     string    `json:"return_url" validate:"required,url"`
}

// Checkout converts the caller's cart into an order.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body checkoutRequest
		owner, ok := decodeCartRequest(w, r, logg, &body)
		if !ok {
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithCartID(ctx, body.Panier.String())
		}

		result, err := svc.Checkout(ctx, owner, checkout.Input{
			CartID:        body.Panier,
			TransactionID: body.TransactionID,
			PaymentID:     body.PaymentID,
			NotifyURL:     body.NotifyURL,
			ReturnURL:     body.ReturnURL,
		})
		if err != nil {
			responses.WriteResult(ctx, logg, w, nil, err)
			return
		}
		responses.WriteResult(ctx, logg, w, result, nil)
	}
}
