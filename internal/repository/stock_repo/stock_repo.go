package stock_repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
)

type stockRepository struct {
	db *sql.DB
}

func NewStockRepository(db *sql.DB) *stockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) Upsert(ctx context.Context, querier domain.Querier, pa *domain.ProductAvailability) error {
	query := `
		INSERT INTO product_availability (id, product_id, warehouse_id, quantity, min_quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (product_id, warehouse_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, min_quantity = EXCLUDED.min_quantity, updated_at = EXCLUDED.updated_at
	`
	_, err := querier.ExecContext(ctx, query,
		pa.ID, pa.ProductID, pa.WarehouseID, pa.Quantity, pa.MinQuantity, pa.CreatedAt, pa.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert availability for product %s: %w", pa.ProductID, err)
	}
	return nil
}

func (r *stockRepository) GetByProduct(ctx context.Context, querier domain.Querier, productID string) (*domain.ProductAvailability, error) {
	query := `
		SELECT id, product_id, warehouse_id, quantity, min_quantity, created_at, updated_at
		FROM product_availability
		WHERE product_id = $1
	`
	return r.scanOne(querier.QueryRowContext(ctx, query, productID), productID)
}

func (r *stockRepository) FindAvailability(ctx context.Context, querier domain.Querier, productID string, minQuantity int) (*domain.ProductAvailability, error) {
	query := `
		SELECT id, product_id, warehouse_id, quantity, min_quantity, created_at, updated_at
		FROM product_availability
		WHERE product_id = $1 AND quantity >= $2
	`
	pa, err := r.scanOne(querier.QueryRowContext(ctx, query, productID, minQuantity), productID)
	if err == domain.ErrProductNotFound {
		// Distinguish a missing product from a present-but-short one.
		if _, getErr := r.GetByProduct(ctx, querier, productID); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrInsufficientStock
	}
	return pa, err
}

func (r *stockRepository) scanOne(row *sql.Row, productID string) (*domain.ProductAvailability, error) {
	pa := &domain.ProductAvailability{}
	err := row.Scan(
		&pa.ID,
		&pa.ProductID,
		&pa.WarehouseID,
		&pa.Quantity,
		&pa.MinQuantity,
		&pa.CreatedAt,
		&pa.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get availability for product %s: %w", productID, err)
	}
	return pa, nil
}

func (r *stockRepository) DecrementTx(ctx context.Context, querier domain.Querier, productID string, qty int) error {
	query := `
		UPDATE product_availability
		SET quantity = quantity - $1, updated_at = $2
		WHERE product_id = $3 AND quantity >= $1
	`
	res, err := querier.ExecContext(ctx, query, qty, time.Now(), productID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock for product %s: %w", productID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for stock decrement: %w", err)
	}
	if rowsAffected == 0 {
		if _, getErr := r.GetByProduct(ctx, querier, productID); getErr != nil {
			return getErr
		}
		return domain.ErrInsufficientStock
	}
	return nil
}

func (r *stockRepository) IncrementTx(ctx context.Context, querier domain.Querier, productID string, qty int) error {
	query := `
		UPDATE product_availability
		SET quantity = quantity + $1, updated_at = $2
		WHERE product_id = $3
	`
	res, err := querier.ExecContext(ctx, query, qty, time.Now(), productID)
	if err != nil {
		return fmt.Errorf("failed to increment stock for product %s: %w", productID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for stock increment: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *stockRepository) CreateMovementTx(ctx context.Context, querier domain.Querier, m *domain.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, order_id, product_id, quantity, direction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := querier.ExecContext(ctx, query,
		m.ID, m.OrderID, m.ProductID, m.Quantity, m.Direction, m.CreatedAt)
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return domain.ErrMessageAlreadyProcessed
		}
		return fmt.Errorf("failed to record stock movement for order %s: %w", m.OrderID, err)
	}
	return nil
}

func (r *stockRepository) GetMovements(ctx context.Context, querier domain.Querier, orderID string, direction domain.MovementDirection) ([]domain.StockMovement, error) {
	query := `
		SELECT id, order_id, product_id, quantity, direction, created_at
		FROM stock_movements
		WHERE order_id = $1 AND direction = $2
	`
	rows, err := querier.QueryContext(ctx, query, orderID, direction)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock movements for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var movements []domain.StockMovement
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(&m.ID, &m.OrderID, &m.ProductID, &m.Quantity, &m.Direction, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock movements: %w", err)
	}
	return movements, nil
}
