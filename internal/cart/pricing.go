package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// LineTotal is the item's effective unit price on today times its quantity.
func LineTotal(item models.LineItem, today time.Time) int {
	return catalog.EffectivePrice(item.Product, today) * item.Quantity
}

// Total sums the line totals, ignoring any coupon.
func Total(c models.Cart, today time.Time) int {
	total := 0
	for _, item := range c.Items {
		total += LineTotal(item, today)
	}
	return total
}

// TotalWithCoupon applies the coupon fraction to Total and floors the result.
func TotalWithCoupon(c models.Cart, today time.Time) int {
	total := Total(c, today)
	if c.Coupon == nil {
		return total
	}
	return applyDiscount(total, c.Coupon.Discount)
}

func applyDiscount(total int, fraction decimal.Decimal) int {
	t := decimal.NewFromInt(int64(total))
	return int(t.Sub(t.Mul(fraction)).Floor().IntPart())
}

// IsEmpty reports whether the cart has no line items.
func IsEmpty(c models.Cart) bool {
	return len(c.Items) == 0
}
