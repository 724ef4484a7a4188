package outbox_repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
)

type outboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *outboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) CreateEventTx(ctx context.Context, querier domain.Querier, event *domain.OutboxEvent) error {
	headers, err := json.Marshal(event.Headers)
	if err != nil {
		return fmt.Errorf("failed to encode outbox headers: %w", err)
	}

	query := `
		INSERT INTO outbox_events (id, channel, message_key, message_type, payload, headers, status, created_at, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	var sentAt sql.NullTime
	if event.SentAt != nil {
		sentAt = sql.NullTime{Time: *event.SentAt, Valid: true}
	}

	_, err = querier.ExecContext(ctx, query,
		event.ID,
		event.Channel,
		event.MessageKey,
		event.Type,
		event.Payload,
		headers,
		event.Status,
		event.CreatedAt,
		sentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) GetPendingEvents(ctx context.Context, querier domain.Querier, limit int) ([]domain.OutboxEvent, error) {
	query := `
		SELECT id, channel, message_key, message_type, payload, headers, status, created_at, sent_at
		FROM outbox_events
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	rows, err := querier.QueryContext(ctx, query, domain.OutboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending outbox events: %w", err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		event := domain.OutboxEvent{}
		var headers []byte
		var sentAt sql.NullTime
		err := rows.Scan(
			&event.ID,
			&event.Channel,
			&event.MessageKey,
			&event.Type,
			&event.Payload,
			&headers,
			&event.Status,
			&event.CreatedAt,
			&sentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		if err := json.Unmarshal(headers, &event.Headers); err != nil {
			return nil, fmt.Errorf("failed to decode outbox headers for event %s: %w", event.ID, err)
		}
		if sentAt.Valid {
			event.SentAt = &sentAt.Time
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) UpdateEventStatusTx(ctx context.Context, querier domain.Querier, id string, status domain.OutboxEventStatus) error {
	query := `
		UPDATE outbox_events
		SET status = $1, sent_at = $2
		WHERE id = $3
	`
	var sentAt sql.NullTime
	if status == domain.OutboxStatusSent {
		sentAt = sql.NullTime{Time: time.Now(), Valid: true}
	}

	res, err := querier.ExecContext(ctx, query, status, sentAt, id)
	if err != nil {
		return fmt.Errorf("failed to update outbox event status for id %s: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for outbox update (id %s): %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no outbox event found with id %s to update status", id)
	}
	return nil
}
