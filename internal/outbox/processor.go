package outbox

import (
	"context"
	"sort"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
	kafka_infra "github.com/francescomedina/web-app-2-sub000/internal/infrastructure/kafka"
	"github.com/francescomedina/web-app-2-sub000/internal/repository/outbox_repo"
)

const defaultBatchSize = 10

// Processor is the outbox relay: it polls for committed PENDING rows and
// republishes them on their channel, promoting the stored headers to
// transport-level message headers. A produce failure leaves that row and the
// rest of the batch PENDING, so rows for one key always reach the broker in
// row order; delivery is at-least-once and consumers dedupe on message_id.
type Processor struct {
	db           domain.TxBeginner
	outboxRepo   outbox_repo.OutboxRepository
	producer     kafka_infra.Producer
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       *zap.Logger
}

func NewProcessor(
	db domain.TxBeginner,
	outboxRepo outbox_repo.OutboxRepository,
	producer kafka_infra.Producer,
	pollInterval time.Duration,
	pollTimeout time.Duration,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		db:           db,
		outboxRepo:   outboxRepo,
		producer:     producer,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		logger:       logger,
	}
}

func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("Starting outbox processor...")
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox processor stopping.")
			return
		case <-ticker.C:
			p.processOutboxEvents(ctx)
		}
	}
}

func (p *Processor) processOutboxEvents(ctx context.Context) {
	tx, err := p.db.BeginTx(ctx)
	if err != nil {
		p.logger.Error("Failed to begin transaction for outbox poll", zap.Error(err))
		return
	}
	defer tx.Rollback()

	queryCtx, cancel := context.WithTimeout(ctx, p.pollTimeout)
	events, err := p.outboxRepo.GetPendingEvents(queryCtx, tx, defaultBatchSize)
	cancel()
	if err != nil {
		p.logger.Error("Failed to get pending outbox events", zap.Error(err))
		return
	}
	if len(events) == 0 {
		return
	}

	p.logger.Info("Found pending outbox events", zap.Int("count", len(events)))

	sent := 0
	for _, event := range events {
		if err := p.producer.Produce(ctx, event.Channel, []byte(event.MessageKey), event.Payload, PromoteHeaders(event)); err != nil {
			// Rows are relayed oldest first. Producing a later row after an
			// earlier one failed could reorder events for the same key, so the
			// rest of the batch stays PENDING until the next poll.
			p.logger.Error("Failed to relay outbox event, leaving rest of batch pending",
				zap.String("message_id", event.ID),
				zap.String("channel", event.Channel),
				zap.Error(err))
			break
		}

		if err := p.outboxRepo.UpdateEventStatusTx(ctx, tx, event.ID, domain.OutboxStatusSent); err != nil {
			p.logger.Error("Failed to mark outbox event as SENT",
				zap.String("message_id", event.ID),
				zap.Error(err))
			continue
		}
		sent++
		p.logger.Info("Outbox event relayed",
			zap.String("message_id", event.ID),
			zap.String("channel", event.Channel),
			zap.String("type", string(event.Type)))
	}

	if err := tx.Commit(); err != nil {
		p.logger.Error("Failed to commit outbox relay transaction", zap.Error(err))
		return
	}
	if sent < len(events) {
		p.logger.Warn("Some outbox events were left pending for retry",
			zap.Int("sent", sent), zap.Int("pending", len(events)-sent))
	}
}

// PromoteHeaders turns the row's stored header map into broker headers,
// sorted by key for stable output.
func PromoteHeaders(event domain.OutboxEvent) []kafkago.Header {
	keys := make([]string, 0, len(event.Headers))
	for k := range event.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafkago.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(event.Headers[k])})
	}
	return headers
}
