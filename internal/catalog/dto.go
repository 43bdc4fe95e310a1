package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ProductDTO is the public view of a product with its price resolved for today.
type ProductDTO struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Slug             string     `json:"slug"`
	Description      *string    `json:"description,omitempty"`
	Price            int        `json:"price"`
	PromotionalPrice *int       `json:"promotional_price,omitempty"`
	PromoStartsOn    *string    `json:"promo_starts_on,omitempty"`
	PromoEndsOn      *string    `json:"promo_ends_on,omitempty"`
	PromotionActive  bool       `json:"promotion_active"`
	EffectivePrice   int        `json:"effective_price"`
	MerchantID       *uuid.UUID `json:"merchant_id,omitempty"`
	CategoryID       *uuid.UUID `json:"category_id,omitempty"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
}

const dateLayout = "2006-01-02"

func NewProductDTO(p models.Product, today time.Time) ProductDTO {
	return ProductDTO{
		ID:               p.ID,
		Name:             p.Name,
		Slug:             p.Slug,
		Description:      p.Description,
		Price:            p.Price,
		PromotionalPrice: p.PromotionalPrice,
		PromoStartsOn:    formatDate(p.PromoStartsOn),
		PromoEndsOn:      formatDate(p.PromoEndsOn),
		PromotionActive:  IsPromotionActive(p, today),
		EffectivePrice:   EffectivePrice(p, today),
		MerchantID:       p.MerchantID,
		CategoryID:       p.CategoryID,
		IsActive:         p.IsActive,
		CreatedAt:        p.CreatedAt,
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

// CreateProductInput holds the validated admin payload for a new product.
type CreateProductInput struct {
	Name             string
	Description      *string
	Price            int
	PromotionalPrice *int
	PromoStartsOn    *time.Time
	PromoEndsOn      *time.Time
	MerchantID       *uuid.UUID
	CategoryID       *uuid.UUID
	IsActive         bool
}

// ProductDetail is the product page: the product, a few related products and,
// for a signed-in viewer, whether it is among their favorites.
type ProductDetail struct {
	ProductDTO
	IsFavorited bool         `json:"is_favorited"`
	Related     []ProductDTO `json:"related"`
}
