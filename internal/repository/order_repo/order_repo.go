package order_repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *orderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateTx(ctx context.Context, querier domain.Querier, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, buyer, status, delivery, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := querier.ExecContext(ctx, query,
		order.ID, order.Buyer, order.Status, order.Delivery, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order %s: %w", order.ID, err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
	`
	for _, it := range order.Items {
		if _, err := querier.ExecContext(ctx, itemQuery, order.ID, it.ProductID, it.Quantity, it.UnitPrice); err != nil {
			return fmt.Errorf("failed to create order item for order %s: %w", order.ID, err)
		}
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, querier domain.Querier, id string) (*domain.Order, error) {
	return r.getByID(ctx, querier, id, false)
}

func (r *orderRepository) GetByIDForUpdateTx(ctx context.Context, querier domain.Querier, id string) (*domain.Order, error) {
	return r.getByID(ctx, querier, id, true)
}

func (r *orderRepository) getByID(ctx context.Context, querier domain.Querier, id string, forUpdate bool) (*domain.Order, error) {
	query := `
		SELECT id, buyer, status, delivery, created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	order := &domain.Order{}
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.Buyer,
		&order.Status,
		&order.Delivery,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}

	items, err := r.getItems(ctx, querier, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) getItems(ctx context.Context, querier domain.Querier, orderID string) ([]domain.LineItem, error) {
	query := `
		SELECT product_id, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
	`
	rows, err := querier.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items for %s: %w", orderID, err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var it domain.LineItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return items, nil
}

func (r *orderRepository) GetByBuyer(ctx context.Context, querier domain.Querier, buyer string) ([]*domain.Order, error) {
	query := `
		SELECT id, buyer, status, delivery, created_at, updated_at
		FROM orders
		WHERE buyer = $1
		ORDER BY created_at DESC
	`
	rows, err := querier.QueryContext(ctx, query, buyer)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders for buyer %s: %w", buyer, err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order := &domain.Order{}
		if err := rows.Scan(&order.ID, &order.Buyer, &order.Status, &order.Delivery, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for _, order := range orders {
		items, err := r.getItems(ctx, querier, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}
	return orders, nil
}

func (r *orderRepository) UpdateStatusTx(ctx context.Context, querier domain.Querier, id string, status domain.OrderStatus, delivery string) error {
	query := `
		UPDATE orders
		SET status = $1,
		    delivery = CASE WHEN $2 <> '' THEN $2 ELSE delivery END,
		    updated_at = $3
		WHERE id = $4
	`
	res, err := querier.ExecContext(ctx, query, status, delivery, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update status of order %s: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for order status update: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
