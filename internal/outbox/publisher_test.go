package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
)

type fakeOutboxRepo struct {
	created []*domain.OutboxEvent
	err     error
}

func (f *fakeOutboxRepo) CreateEventTx(ctx context.Context, querier domain.Querier, event *domain.OutboxEvent) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, event)
	return nil
}

func (f *fakeOutboxRepo) GetPendingEvents(ctx context.Context, querier domain.Querier, limit int) ([]domain.OutboxEvent, error) {
	events := make([]domain.OutboxEvent, 0, len(f.created))
	for _, e := range f.created {
		if e.Status == domain.OutboxStatusPending {
			events = append(events, *e)
		}
	}
	if limit < len(events) {
		events = events[:limit]
	}
	return events, nil
}

func (f *fakeOutboxRepo) UpdateEventStatusTx(ctx context.Context, querier domain.Querier, id string, status domain.OutboxEventStatus) error {
	for _, e := range f.created {
		if e.ID == id {
			e.Status = status
		}
	}
	return nil
}

func TestPublisherPublish(t *testing.T) {
	t.Parallel()

	repo := &fakeOutboxRepo{}
	publisher := NewPublisher(repo)

	payload := domain.OrderPayload{
		ID:    "o1",
		Buyer: "alice",
		Items: []domain.LineItemPayload{{ProductID: "p1", Quantity: 1, UnitPrice: 9.99}},
	}

	event, err := publisher.Publish(context.Background(), nil, "order-events", domain.EventOrderCreated, payload)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected 1 outbox row, got %d", len(repo.created))
	}
	if event.Channel != "order-events" {
		t.Fatalf("expected channel order-events, got %s", event.Channel)
	}
	if event.MessageKey != "o1" {
		t.Fatalf("expected message key o1, got %s", event.MessageKey)
	}
	if event.Status != domain.OutboxStatusPending {
		t.Fatalf("expected PENDING status, got %s", event.Status)
	}

	if event.Headers[domain.HeaderAggregateID] != "o1" {
		t.Fatalf("expected aggregate_id header o1, got %s", event.Headers[domain.HeaderAggregateID])
	}
	if event.Headers[domain.HeaderMessageID] != event.ID {
		t.Fatalf("expected message_id header to match the event id")
	}
	if event.Headers[domain.HeaderType] != string(domain.EventOrderCreated) {
		t.Fatalf("expected type header ORDER_CREATED, got %s", event.Headers[domain.HeaderType])
	}

	var envelope domain.Envelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		t.Fatalf("expected payload to be a valid envelope, got %v", err)
	}
	if envelope.Type != domain.EventOrderCreated || envelope.Key != "o1" {
		t.Fatalf("unexpected envelope: type=%s key=%s", envelope.Type, envelope.Key)
	}
	if envelope.Data.Buyer != "alice" {
		t.Fatalf("expected buyer carried in envelope, got %s", envelope.Data.Buyer)
	}
}

func TestPromoteHeaders(t *testing.T) {
	t.Parallel()

	event := domain.OutboxEvent{
		ID: "e1",
		Headers: map[string]string{
			domain.HeaderType:        "ORDER_CREATED",
			domain.HeaderAggregateID: "o1",
			domain.HeaderMessageID:   "e1",
		},
	}

	headers := PromoteHeaders(event)
	if len(headers) != 3 {
		t.Fatalf("expected 3 headers, got %d", len(headers))
	}
	// Sorted by key: aggregate_id, message_id, type.
	if headers[0].Key != domain.HeaderAggregateID || string(headers[0].Value) != "o1" {
		t.Fatalf("unexpected first header: %s=%s", headers[0].Key, headers[0].Value)
	}
	if headers[1].Key != domain.HeaderMessageID || string(headers[1].Value) != "e1" {
		t.Fatalf("unexpected second header: %s=%s", headers[1].Key, headers[1].Value)
	}
	if headers[2].Key != domain.HeaderType || string(headers[2].Value) != "ORDER_CREATED" {
		t.Fatalf("unexpected third header: %s=%s", headers[2].Key, headers[2].Value)
	}
}
