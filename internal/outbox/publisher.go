package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
	"github.com/francescomedina/web-app-2-sub000/internal/repository/outbox_repo"
	"github.com/francescomedina/web-app-2-sub000/internal/util"
)

// Publisher writes intent-to-publish rows. Callers pass the transaction of the
// business mutation the event reports, so both commit or abort together; the
// relay ships the row to the broker afterwards.
type Publisher struct {
	outboxRepo outbox_repo.OutboxRepository
}

func NewPublisher(repo outbox_repo.OutboxRepository) *Publisher {
	return &Publisher{outboxRepo: repo}
}

func (p *Publisher) Publish(ctx context.Context, querier domain.Querier, channel string, eventType domain.EventType, payload domain.OrderPayload) (*domain.OutboxEvent, error) {
	envelope := domain.NewEnvelope(eventType, payload)
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	event := &domain.OutboxEvent{
		ID:         util.GenerateUUID(),
		Channel:    channel,
		MessageKey: payload.ID,
		Type:       eventType,
		Payload:    body,
		Status:     domain.OutboxStatusPending,
		CreatedAt:  time.Now(),
	}
	event.Headers = map[string]string{
		domain.HeaderAggregateID: payload.ID,
		domain.HeaderMessageID:   event.ID,
		domain.HeaderType:        string(eventType),
	}

	if err := p.outboxRepo.CreateEventTx(ctx, querier, event); err != nil {
		return nil, fmt.Errorf("failed to persist outbox event %s: %w", event.ID, err)
	}
	return event, nil
}
