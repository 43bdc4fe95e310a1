package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// withContents preloads line items (oldest first) with their products, and the
// coupon with its restricted products.
func withContents(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC").Order("id ASC") }).
		Preload("Items.Product").
		Preload("Coupon.Products")
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var c models.Cart
	if err := withContents(r.DB(ctx)).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	var c models.Cart
	err := withContents(r.DB(ctx)).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindBySession returns the unclaimed cart for an anonymous session.
func (r *Repository) FindBySession(ctx context.Context, sessionKey string) (*models.Cart, error) {
	var c models.Cart
	err := withContents(r.DB(ctx)).
		Where("session_key = ? AND customer_id IS NULL", sessionKey).
		Order("created_at DESC").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) Create(ctx context.Context, c *models.Cart) error {
	return r.DB(ctx).Omit("Coupon", "Items").Create(c).Error
}

func (r *Repository) CreateItem(ctx context.Context, item *models.LineItem) error {
	return r.DB(ctx).Omit("Product").Create(item).Error
}

func (r *Repository) SetItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (bool, error) {
	res := r.DB(ctx).Model(&models.LineItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Update("quantity", quantity)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error) {
	res := r.DB(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&models.LineItem{})
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) SetCoupon(ctx context.Context, cartID uuid.UUID, couponID *uuid.UUID) error {
	var value any = gorm.Expr("NULL")
	if couponID != nil {
		value = *couponID
	}
	return r.DB(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("coupon_id", value).Error
}

func (r *Repository) AttachCustomer(ctx context.Context, cartID, customerID uuid.UUID) error {
	return r.DB(ctx).Model(&models.Cart{}).
		Where("id = ? AND customer_id IS NULL", cartID).
		Update("customer_id", customerID).Error
}
