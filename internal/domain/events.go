package domain

import (
	"errors"
	"time"
)

var ErrUnknownEventType = errors.New("unknown event type")

// EventType is the closed saga vocabulary. Consumers dispatch on it through
// explicit tables; a type outside a consumer's table is a data error, never a
// silent fall-through.
type EventType string

const (
	EventOrderCreated                    EventType = "ORDER_CREATED"
	EventOrderCancelled                  EventType = "ORDER_CANCELLED"
	EventQuantityAvailable               EventType = "QUANTITY_AVAILABLE"
	EventQuantityUnavailable             EventType = "QUANTITY_UNAVAILABLE"
	EventQuantityUnavailableNotPurchased EventType = "QUANTITY_UNAVAILABLE_NOT_PURCHASED"
	EventQuantityDecremented             EventType = "QUANTITY_DECREMENTED"
	EventQuantityIncremented             EventType = "QUANTITY_INCREMENTED"
	EventTransactionSuccess              EventType = "TRANSACTION_SUCCESS"
	EventTransactionError                EventType = "TRANSACTION_ERROR"
	EventCreditUnavailable               EventType = "CREDIT_UNAVAILABLE"
	EventRefundTransactionSuccess        EventType = "REFUND_TRANSACTION_SUCCESS"
	EventRefundTransactionError          EventType = "REFUND_TRANSACTION_ERROR"
)

// Message headers carried on the outbox row and promoted by the relay to
// transport-level headers, end to end.
const (
	HeaderAggregateID = "aggregate_id"
	HeaderMessageID   = "message_id"
	HeaderType        = "type"
)

type LineItemPayload struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// OrderPayload is the order snapshot every saga event carries, so downstream
// consumers never need an extra lookup.
type OrderPayload struct {
	ID       string            `json:"id"`
	Buyer    string            `json:"buyer"`
	Status   string            `json:"status"`
	Items    []LineItemPayload `json:"items"`
	Delivery string            `json:"delivery,omitempty"`
}

func (p OrderPayload) Total() float64 {
	var total float64
	for _, it := range p.Items {
		total += float64(it.Quantity) * it.UnitPrice
	}
	return total
}

// Envelope is the on-the-wire event shape. Key is the order id, used as the
// broker partition key so all events for one order stay ordered.
type Envelope struct {
	Type           EventType    `json:"type"`
	Key            string       `json:"key"`
	Data           OrderPayload `json:"data"`
	EventCreatedAt time.Time    `json:"eventCreatedAt"`
}

func NewEnvelope(eventType EventType, payload OrderPayload) Envelope {
	return Envelope{
		Type:           eventType,
		Key:            payload.ID,
		Data:           payload,
		EventCreatedAt: time.Now().UTC(),
	}
}

func PayloadFromOrder(o *Order) OrderPayload {
	items := make([]LineItemPayload, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, LineItemPayload{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return OrderPayload{
		ID:       o.ID,
		Buyer:    o.Buyer,
		Status:   string(o.Status),
		Items:    items,
		Delivery: o.Delivery,
	}
}
