package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const relatedLimit = 4

// Service exposes catalog reads and product creation.
type Service interface {
	List(ctx context.Context, params pagination.Params) (*pagination.Page[ProductDTO], error)
	GetBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	Detail(ctx context.Context, slug string, viewer *uuid.UUID) (*ProductDetail, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
}

type service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*pagination.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListActive(ctx, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}

	page := pagination.BuildPage(rows, params.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	today := s.now()
	items := make([]ProductDTO, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, NewProductDTO(p, today))
	}
	return &pagination.Page[ProductDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	product, err := s.loadActive(ctx, slug)
	if err != nil {
		return nil, err
	}
	dto := NewProductDTO(*product, s.now())
	return &dto, nil
}

// Detail resolves the product page. IsFavorited is false for anonymous viewers.
func (s *service) Detail(ctx context.Context, slug string, viewer *uuid.UUID) (*ProductDetail, error) {
	product, err := s.loadActive(ctx, slug)
	if err != nil {
		return nil, err
	}
	today := s.now()

	rows, err := s.repo.Related(ctx, product, relatedLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load related products")
	}
	related := make([]ProductDTO, 0, len(rows))
	for _, p := range rows {
		related = append(related, NewProductDTO(p, today))
	}

	favorited := false
	if viewer != nil {
		favorited, err = s.repo.IsFavorited(ctx, *viewer, product.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load favorite")
		}
	}
	return &ProductDetail{
		ProductDTO:  NewProductDTO(*product, today),
		IsFavorited: favorited,
		Related:     related,
	}, nil
}

func (s *service) loadActive(ctx context.Context, slug string) (*models.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	product, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

// Get loads a product by id regardless of its active flag.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	slug := Slugify(input.Name)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must contain letters or digits")
	}

	product := &models.Product{
		Name:             strings.TrimSpace(input.Name),
		Slug:             slug,
		Description:      input.Description,
		Price:            input.Price,
		PromotionalPrice: input.PromotionalPrice,
		PromoStartsOn:    input.PromoStartsOn,
		PromoEndsOn:      input.PromoEndsOn,
		CategoryID:       input.CategoryID,
		IsActive:         input.IsActive,
	}
	if err := s.attachOwnership(ctx, product, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "ux_products_slug", "products.slug") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a product with this slug already exists").
				WithDetails(map[string]any{"slug": slug})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	dto := NewProductDTO(*product, s.now())
	return &dto, nil
}

// attachOwnership checks the optional merchant and category references and
// copies the merchant's category onto the product.
func (s *service) attachOwnership(ctx context.Context, product *models.Product, input CreateProductInput) error {
	if input.MerchantID != nil {
		merchant, err := s.repo.FindMerchant(ctx, *input.MerchantID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load merchant")
		}
		if !merchant.IsActive {
			return pkgerrors.New(pkgerrors.CodeForbidden, "merchant is inactive")
		}
		product.MerchantID = &merchant.ID
		categoryID := merchant.CategoryID
		product.MerchantCategoryID = &categoryID
	}
	if input.CategoryID != nil {
		ok, err := s.repo.CategoryExists(ctx, *input.CategoryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product category")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown product category").
				WithDetails(map[string]any{"field": "category_id"})
		}
	}
	return nil
}

func validateCreate(input CreateProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	if input.PromotionalPrice != nil && *input.PromotionalPrice < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "promotional price cannot be negative")
	}
	if input.PromoStartsOn != nil && input.PromoEndsOn != nil && input.PromoEndsOn.Before(*input.PromoStartsOn) {
		return pkgerrors.New(pkgerrors.CodeValidation, "promotion must end on or after its start")
	}
	return nil
}
