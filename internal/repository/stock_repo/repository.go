package stock_repo

import (
	"context"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
)

type StockRepository interface {
	Upsert(ctx context.Context, querier domain.Querier, pa *domain.ProductAvailability) error
	GetByProduct(ctx context.Context, querier domain.Querier, productID string) (*domain.ProductAvailability, error)
	// FindAvailability is a single conditional read: the record for productID
	// only comes back when quantity >= minQuantity. No stock is held by it.
	FindAvailability(ctx context.Context, querier domain.Querier, productID string, minQuantity int) (*domain.ProductAvailability, error)
	// DecrementTx is an atomic update-with-condition (quantity >= qty); a
	// shortfall fails with domain.ErrInsufficientStock without partial effect.
	DecrementTx(ctx context.Context, querier domain.Querier, productID string, qty int) error
	IncrementTx(ctx context.Context, querier domain.Querier, productID string, qty int) error
	CreateMovementTx(ctx context.Context, querier domain.Querier, m *domain.StockMovement) error
	GetMovements(ctx context.Context, querier domain.Querier, orderID string, direction domain.MovementDirection) ([]domain.StockMovement, error)
}
