package inbox_repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
)

type inboxRepository struct {
	db *sql.DB
}

func NewInboxRepository(db *sql.DB) *inboxRepository {
	return &inboxRepository{db: db}
}

func (r *inboxRepository) MarkProcessedTx(ctx context.Context, querier domain.Querier, msg *domain.ProcessedMessage) error {
	query := `
		INSERT INTO processed_messages (message_id, consumer_group, topic, received_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (message_id, consumer_group) DO NOTHING
	`
	res, err := querier.ExecContext(ctx, query,
		msg.MessageID,
		msg.ConsumerGroup,
		msg.Topic,
		msg.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record processed message %s: %w", msg.MessageID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for processed message insert: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrMessageAlreadyProcessed
	}
	return nil
}
