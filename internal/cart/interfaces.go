package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	FindBySession(ctx context.Context, sessionKey string) (*models.Cart, error)
	Create(ctx context.Context, c *models.Cart) error
	CreateItem(ctx context.Context, item *models.LineItem) error
	SetItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (bool, error)
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error)
	SetCoupon(ctx context.Context, cartID uuid.UUID, couponID *uuid.UUID) error
	AttachCustomer(ctx context.Context, cartID, customerID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type couponFinder interface {
	FindRedeemable(ctx context.Context, code string, today time.Time, productIDs []uuid.UUID) (*models.Coupon, error)
}
