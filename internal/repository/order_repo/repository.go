package order_repo

import (
	"context"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
)

type OrderRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, order *domain.Order) error
	GetByID(ctx context.Context, querier domain.Querier, id string) (*domain.Order, error)
	GetByIDForUpdateTx(ctx context.Context, querier domain.Querier, id string) (*domain.Order, error)
	GetByBuyer(ctx context.Context, querier domain.Querier, buyer string) ([]*domain.Order, error)
	UpdateStatusTx(ctx context.Context, querier domain.Querier, id string, status domain.OrderStatus, delivery string) error
}
