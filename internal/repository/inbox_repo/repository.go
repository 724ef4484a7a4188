package inbox_repo

import (
	"context"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
)

type InboxRepository interface {
	// MarkProcessedTx records the message as handled inside the caller's
	// transaction. A duplicate returns domain.ErrMessageAlreadyProcessed, so
	// the caller can absorb a redelivery as a no-op.
	MarkProcessedTx(ctx context.Context, querier domain.Querier, msg *domain.ProcessedMessage) error
}
