package domain

import (
	"encoding/json"
	"testing"
)

func TestNewEnvelope(t *testing.T) {
	t.Parallel()

	payload := OrderPayload{
		ID:    "o1",
		Buyer: "alice",
		Items: []LineItemPayload{{ProductID: "p1", Quantity: 3, UnitPrice: 2.5}},
	}
	env := NewEnvelope(EventOrderCreated, payload)

	if env.Type != EventOrderCreated {
		t.Fatalf("expected type ORDER_CREATED, got %s", env.Type)
	}
	if env.Key != "o1" {
		t.Fatalf("expected key to be the order id, got %s", env.Key)
	}
	if env.EventCreatedAt.IsZero() {
		t.Fatal("expected eventCreatedAt to be set")
	}
	if got := env.Data.Total(); got != 7.5 {
		t.Fatalf("expected payload total 7.5, got %v", got)
	}
}

func TestEnvelopeWireFormat(t *testing.T) {
	t.Parallel()

	raw := `{
		"type": "TRANSACTION_SUCCESS",
		"key": "o1",
		"data": {
			"id": "o1",
			"buyer": "alice",
			"status": "CREATED",
			"items": [{"productId": "p1", "quantity": 2, "unitPrice": 10}]
		},
		"eventCreatedAt": "2026-01-02T10:00:00Z"
	}`

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("expected envelope to unmarshal, got %v", err)
	}
	if env.Type != EventTransactionSuccess {
		t.Fatalf("expected type TRANSACTION_SUCCESS, got %s", env.Type)
	}
	if len(env.Data.Items) != 1 || env.Data.Items[0].ProductID != "p1" {
		t.Fatalf("unexpected items: %+v", env.Data.Items)
	}
	if got := env.Data.Total(); got != 20 {
		t.Fatalf("expected total 20, got %v", got)
	}
}

func TestPayloadFromOrder(t *testing.T) {
	t.Parallel()

	o, err := NewOrder("o1", "alice", []LineItem{
		{ProductID: "p1", Quantity: 1, UnitPrice: 5},
		{ProductID: "p2", Quantity: 2, UnitPrice: 3},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	o.Delivery = "tracking-42"

	p := PayloadFromOrder(o)
	if p.ID != "o1" || p.Buyer != "alice" || p.Status != string(OrderStatusCreated) {
		t.Fatalf("unexpected payload header: %+v", p)
	}
	if p.Delivery != "tracking-42" {
		t.Fatalf("expected delivery to be carried, got %q", p.Delivery)
	}
	if len(p.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(p.Items))
	}
	if p.Total() != o.Total() {
		t.Fatalf("payload total %v diverges from order total %v", p.Total(), o.Total())
	}
}
