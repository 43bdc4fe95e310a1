package catalog

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// IsPromotionActive reports whether the product's promotional price applies on
// today. Both bounds are inclusive calendar dates and must be set.
func IsPromotionActive(p models.Product, today time.Time) bool {
	if p.PromotionalPrice == nil || *p.PromotionalPrice == 0 {
		return false
	}
	if p.PromoStartsOn == nil || p.PromoEndsOn == nil {
		return false
	}
	day := dateOnly(today)
	return !day.Before(dateOnly(*p.PromoStartsOn)) && !day.After(dateOnly(*p.PromoEndsOn))
}

// EffectivePrice is the unit price charged for p on today.
func EffectivePrice(p models.Product, today time.Time) int {
	if IsPromotionActive(p, today) {
		return *p.PromotionalPrice
	}
	return p.Price
}

// dateOnly drops the clock so comparisons happen on the calendar date the value
// carries in its own location.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
