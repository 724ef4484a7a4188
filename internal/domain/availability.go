package domain

import (
	"errors"
	"time"
)

var (
	ErrProductNotFound   = errors.New("product availability not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type ProductAvailability struct {
	ID          string
	ProductID   string
	WarehouseID string
	Quantity    int
	MinQuantity int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type MovementDirection string

const (
	MovementOut MovementDirection = "OUT"
	MovementIn  MovementDirection = "IN"
)

// StockMovement records a committed per-order quantity change so that
// compensation re-increments exactly what was decremented, exactly once.
type StockMovement struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	Direction MovementDirection
	CreatedAt time.Time
}
