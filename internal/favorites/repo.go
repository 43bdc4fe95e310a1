package favorites

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository encapsulates favorite persistence.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Add inserts a favorite and ignores duplicates.
func (r *Repository) Add(ctx context.Context, customerID, productID uuid.UUID) error {
	return r.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "customer_id"}, {Name: "product_id"}}, DoNothing: true}).
		Create(&models.Favorite{CustomerID: customerID, ProductID: productID}).
		Error
}

// Remove deletes the favorite and reports whether one existed.
func (r *Repository) Remove(ctx context.Context, customerID, productID uuid.UUID) (bool, error) {
	res := r.DB(ctx).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		Delete(&models.Favorite{})
	return res.RowsAffected > 0, res.Error
}

// List returns favorites older than cursor with their product, newest first.
func (r *Repository) List(ctx context.Context, customerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Favorite, error) {
	query := r.DB(ctx).Preload("Product").Where("customer_id = ?", customerID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Favorite
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
