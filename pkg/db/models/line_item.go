package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LineItem pairs a product with a quantity. It belongs to a cart until checkout
// moves it onto an order, at which point UnitPrice is locked in.
type LineItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	CartID    *uuid.UUID `gorm:"column:cart_id;type:uuid;uniqueIndex:ux_line_items_cart_product"`
	OrderID   *uuid.UUID `gorm:"column:order_id;type:uuid;index"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_line_items_cart_product"`
	Product   Product    `gorm:"foreignKey:ProductID"`
	Quantity  int        `gorm:"column:quantity;not null"`
	UnitPrice *int       `gorm:"column:unit_price"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (li *LineItem) BeforeCreate(*gorm.DB) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	if li.CreatedAt.IsZero() {
		li.CreatedAt = time.Now().UTC()
	}
	return nil
}
