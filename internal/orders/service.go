package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service exposes a customer's order history.
type Service interface {
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*pagination.Page[OrderSummary], error)
	GetForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*OrderDetail, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*pagination.Page[OrderSummary], error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListForCustomer(ctx, customerID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	page := pagination.BuildPage(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	items := make([]OrderSummary, 0, len(page.Items))
	for _, o := range page.Items {
		items = append(items, NewOrderSummary(o))
	}
	return &pagination.Page[OrderSummary]{Items: items, NextCursor: page.NextCursor}, nil
}

// GetForCustomer hides orders of other customers behind NOT_FOUND.
func (s *service) GetForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	detail := NewOrderDetail(*order)
	return &detail, nil
}
