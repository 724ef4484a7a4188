package outbox_repo

import (
	"context"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
)

type OutboxRepository interface {
	CreateEventTx(ctx context.Context, querier domain.Querier, event *domain.OutboxEvent) error
	GetPendingEvents(ctx context.Context, querier domain.Querier, limit int) ([]domain.OutboxEvent, error)
	UpdateEventStatusTx(ctx context.Context, querier domain.Querier, id string, status domain.OutboxEventStatus) error
}
