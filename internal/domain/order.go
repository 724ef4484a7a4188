package domain

import (
	"errors"
	"time"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidOrder        = errors.New("invalid order data")
	ErrOrderNotCancellable = errors.New("order cannot be cancelled in its current status")
)

type OrderStatus string

const (
	OrderStatusCreated                      OrderStatus = "CREATED"
	OrderStatusIssued                       OrderStatus = "ISSUED"
	OrderStatusCanceled                     OrderStatus = "CANCELED"
	OrderStatusFailedQuantityUnavailable    OrderStatus = "FAILED-QUANTITY_UNAVAILABLE"
	OrderStatusFailedCreditUnavailable      OrderStatus = "FAILED-CREDIT_UNAVAILABLE"
	OrderStatusFailedTransactionError       OrderStatus = "FAILED-TRANSACTION_ERROR"
	OrderStatusFailedRefundTransactionError OrderStatus = "FAILED-REFUND_TRANSACTION_ERROR"
)

// IsTerminal reports whether no further saga outcome may change the status.
// ISSUED is terminal for the saga itself; the post-hoc cancellation path is the
// one sanctioned exception (ISSUED -> CANCELED via a refund outcome).
func (s OrderStatus) IsTerminal() bool {
	return s != OrderStatusCreated
}

type LineItem struct {
	ProductID string
	Quantity  int
	UnitPrice float64
}

type Order struct {
	ID        string
	Buyer     string
	Status    OrderStatus
	Items     []LineItem
	Delivery  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewOrder(id, buyer string, items []LineItem) (*Order, error) {
	if id == "" || buyer == "" || len(items) == 0 {
		return nil, ErrInvalidOrder
	}
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.ProductID == "" || it.Quantity <= 0 || it.UnitPrice < 0 {
			return nil, ErrInvalidOrder
		}
		// One line per product; repeats must be merged by the caller.
		if _, dup := seen[it.ProductID]; dup {
			return nil, ErrInvalidOrder
		}
		seen[it.ProductID] = struct{}{}
	}
	now := time.Now()
	return &Order{
		ID:        id,
		Buyer:     buyer,
		Status:    OrderStatusCreated,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (o *Order) Total() float64 {
	var total float64
	for _, it := range o.Items {
		total += float64(it.Quantity) * it.UnitPrice
	}
	return total
}

// CanTransition guards the saga status machine. Outcome events only ever move
// an order out of CREATED; the single post-terminal edge is ISSUED -> CANCELED,
// driven by a successful refund after a post-hoc cancellation.
func (o *Order) CanTransition(to OrderStatus) bool {
	if o.Status == OrderStatusCreated {
		return to != OrderStatusCreated
	}
	if o.Status == OrderStatusIssued && to == OrderStatusCanceled {
		return true
	}
	return false
}
