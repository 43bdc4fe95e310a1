package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Create(product).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).Where("slug = ?", slug).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListActive returns up to limit active products older than cursor, newest first.
func (r *Repository) ListActive(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Product, error) {
	query := r.DB(ctx).Where("is_active = ?", true)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Product
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Related returns up to limit active products sharing the category of product,
// or its merchant when it has no category. Newest first.
func (r *Repository) Related(ctx context.Context, product *models.Product, limit int) ([]models.Product, error) {
	query := r.DB(ctx).Where("is_active = ? AND id <> ?", true, product.ID)
	switch {
	case product.CategoryID != nil:
		query = query.Where("category_id = ?", *product.CategoryID)
	case product.MerchantID != nil:
		query = query.Where("merchant_id = ?", *product.MerchantID)
	default:
		return nil, nil
	}
	var rows []models.Product
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *Repository) IsFavorited(ctx context.Context, customerID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Favorite{}).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) FindMerchant(ctx context.Context, id uuid.UUID) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := r.DB(ctx).Where("id = ?", id).First(&merchant).Error; err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *Repository) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.ProductCategory{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
