package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository holds the writes that turn a cart into an order.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// LockCart loads the cart with its items and coupon, holding a row lock on the
// cart until the surrounding transaction ends. SQLite serialises writers
// instead.
func (r *Repository) LockCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	query := r.DB(ctx)
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: clause.CurrentTable}})
	}
	var c models.Cart
	err := query.
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC").Order("id ASC") }).
		Preload("Items.Product").
		Preload("Coupon").
		Where("id = ?", cartID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Omit(clause.Associations).Create(order).Error
}

// MoveItem re-parents a cart line onto the order and locks its unit price.
func (r *Repository) MoveItem(ctx context.Context, itemID, orderID uuid.UUID, unitPrice int) error {
	res := r.DB(ctx).Model(&models.LineItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"order_id":   orderID,
			"cart_id":    gorm.Expr("NULL"),
			"unit_price": unitPrice,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", cartID).Delete(&models.Cart{}).Error
}
