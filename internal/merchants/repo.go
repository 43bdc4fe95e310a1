package merchants

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists merchants and the category trees they sell under.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

func (r *Repository) CreateCategory(ctx context.Context, category *models.MerchantCategory) error {
	return r.DB(ctx).Create(category).Error
}

func (r *Repository) ListCategories(ctx context.Context) ([]models.MerchantCategory, error) {
	var rows []models.MerchantCategory
	err := r.DB(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.MerchantCategory, error) {
	var category models.MerchantCategory
	if err := r.DB(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) CreateProductCategory(ctx context.Context, category *models.ProductCategory) error {
	return r.DB(ctx).Create(category).Error
}

// ListProductCategories returns every product category, or only those under
// merchantCategoryID when set.
func (r *Repository) ListProductCategories(ctx context.Context, merchantCategoryID *uuid.UUID) ([]models.ProductCategory, error) {
	query := r.DB(ctx)
	if merchantCategoryID != nil {
		query = query.Where("merchant_category_id = ?", *merchantCategoryID)
	}
	var rows []models.ProductCategory
	err := query.Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) Create(ctx context.Context, merchant *models.Merchant) error {
	return r.DB(ctx).Create(merchant).Error
}

func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := r.DB(ctx).Where("slug = ?", slug).First(&merchant).Error; err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *Repository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := r.DB(ctx).Where("owner_id = ?", ownerID).First(&merchant).Error; err != nil {
		return nil, err
	}
	return &merchant, nil
}

// SyncOwnerName copies the merchant contact name onto the owning customer.
func (r *Repository) SyncOwnerName(ctx context.Context, ownerID uuid.UUID, firstName, lastName string) error {
	return r.DB(ctx).
		Model(&models.Customer{}).
		Where("id = ?", ownerID).
		Updates(map[string]any{"first_name": firstName, "last_name": lastName}).Error
}

func (r *Repository) CountProducts(ctx context.Context, merchantID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Product{}).Where("merchant_id = ?", merchantID).Count(&count).Error
	return count, err
}

// CountOrders counts distinct orders holding at least one of the merchant's
// products, placed at or after since when it is set.
func (r *Repository) CountOrders(ctx context.Context, merchantID uuid.UUID, since *time.Time) (int64, error) {
	query := r.DB(ctx).
		Table("orders o").
		Joins("JOIN line_items li ON li.order_id = o.id").
		Joins("JOIN products p ON p.id = li.product_id").
		Where("p.merchant_id = ?", merchantID)
	if since != nil {
		query = query.Where("o.created_at >= ?", *since)
	}
	var count int64
	err := query.Distinct("o.id").Count(&count).Error
	return count, err
}
