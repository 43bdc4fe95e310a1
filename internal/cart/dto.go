package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Summary is the priced view of a cart returned by every cart operation.
type Summary struct {
	ID              uuid.UUID      `json:"id"`
	CustomerID      *uuid.UUID     `json:"customer_id,omitempty"`
	Items           []LineItemView `json:"items"`
	Total           int            `json:"total"`
	TotalWithCoupon int            `json:"total_with_coupon"`
	DiscountAmount  int            `json:"discount_amount"`
	IsEmpty         bool           `json:"is_empty"`
	Coupon          *CouponView    `json:"coupon,omitempty"`
}

type LineItemView struct {
	ID              uuid.UUID `json:"id"`
	ProductID       uuid.UUID `json:"product_id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	Quantity        int       `json:"quantity"`
	UnitPrice       int       `json:"unit_price"`
	PromotionActive bool      `json:"promotion_active"`
	LineTotal       int       `json:"line_total"`
}

type CouponView struct {
	Code     string          `json:"code"`
	Label    string          `json:"label"`
	Discount decimal.Decimal `json:"discount"`
}

// NewSummary prices c as of today.
func NewSummary(c models.Cart, today time.Time) Summary {
	items := make([]LineItemView, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, LineItemView{
			ID:              item.ID,
			ProductID:       item.ProductID,
			Name:            item.Product.Name,
			Slug:            item.Product.Slug,
			Quantity:        item.Quantity,
			UnitPrice:       catalog.EffectivePrice(item.Product, today),
			PromotionActive: catalog.IsPromotionActive(item.Product, today),
			LineTotal:       LineTotal(item, today),
		})
	}
	total := Total(c, today)
	withCoupon := TotalWithCoupon(c, today)
	summary := Summary{
		ID:              c.ID,
		CustomerID:      c.CustomerID,
		Items:           items,
		Total:           total,
		TotalWithCoupon: withCoupon,
		DiscountAmount:  total - withCoupon,
		IsEmpty:         IsEmpty(c),
	}
	if c.Coupon != nil {
		summary.Coupon = &CouponView{Code: c.Coupon.Code, Label: c.Coupon.Label, Discount: c.Coupon.Discount}
	}
	return summary
}
