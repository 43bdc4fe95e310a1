package favorites

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service manages the products a customer has saved.
type Service interface {
	Add(ctx context.Context, customerID, productID uuid.UUID) error
	Remove(ctx context.Context, customerID, productID uuid.UUID) error
	Toggle(ctx context.Context, customerID, productID uuid.UUID) (*ToggleResult, error)
	List(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*pagination.Page[FavoriteDTO], error)
}

type productLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// FavoriteDTO is one saved product with its price resolved for today.
type FavoriteDTO struct {
	Product   catalog.ProductDTO `json:"product"`
	CreatedAt time.Time          `json:"created_at"`
}

type ToggleResult struct {
	ProductID uuid.UUID `json:"product_id"`
	Favorited bool      `json:"favorited"`
}

type service struct {
	repo     *Repository
	products productLoader
	now      func() time.Time
}

func NewService(repo *Repository, products productLoader, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("favorites repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, products: products, now: now}, nil
}

// Add ensures the product exists and saves it. Saving twice is a no-op.
func (s *service) Add(ctx context.Context, customerID, productID uuid.UUID) error {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return err
	}
	if err := s.repo.Add(ctx, customerID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add favorite")
	}
	return nil
}

// Remove drops the favorite regardless of prior state.
func (s *service) Remove(ctx context.Context, customerID, productID uuid.UUID) error {
	if _, err := s.repo.Remove(ctx, customerID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove favorite")
	}
	return nil
}

// Toggle removes an existing favorite or adds a missing one.
func (s *service) Toggle(ctx context.Context, customerID, productID uuid.UUID) (*ToggleResult, error) {
	removed, err := s.repo.Remove(ctx, customerID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove favorite")
	}
	if removed {
		return &ToggleResult{ProductID: productID, Favorited: false}, nil
	}
	if err := s.Add(ctx, customerID, productID); err != nil {
		return nil, err
	}
	return &ToggleResult{ProductID: productID, Favorited: true}, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*pagination.Page[FavoriteDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, customerID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list favorites")
	}

	page := pagination.BuildPage(rows, params.Limit, func(f models.Favorite) pagination.Cursor {
		return pagination.Cursor{CreatedAt: f.CreatedAt, ID: f.ID}
	})
	today := s.now()
	items := make([]FavoriteDTO, 0, len(page.Items))
	for _, f := range page.Items {
		items = append(items, FavoriteDTO{Product: catalog.NewProductDTO(f.Product, today), CreatedAt: f.CreatedAt})
	}
	return &pagination.Page[FavoriteDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) ensureProduct(ctx context.Context, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}
