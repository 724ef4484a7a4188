package kafka

import (
	"context"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/francescomedina/web-app-2-sub000/internal/app/order"
	"github.com/francescomedina/web-app-2-sub000/internal/domain"
	kafka_infra "github.com/francescomedina/web-app-2-sub000/internal/infrastructure/kafka"
	"github.com/francescomedina/web-app-2-sub000/internal/redisx"
)

// OrderOutcomeHandler consumes the saga outcome topic and moves orders to
// their terminal status. The event vocabulary is closed: anything outside the
// dispatch table is a data error and is skipped, never retried.
func OrderOutcomeHandler(svc order.OrderService, rdb *redis.Client, group string, logger *zap.Logger) kafka_infra.MessageHandler {
	return func(ctx context.Context, m kafkago.Message) error {
		messageID, envelope, err := decodeEnvelope(m)
		if err != nil {
			logger.Error("Skipping malformed order outcome message", zap.Error(err))
			return nil
		}

		if redisx.AlreadySeen(ctx, rdb, group, messageID) {
			logger.Info("Order outcome already seen, skipping",
				zap.String("message_id", messageID), zap.String("order_id", envelope.Data.ID))
			return nil
		}

		switch envelope.Type {
		case domain.EventQuantityDecremented,
			domain.EventQuantityUnavailableNotPurchased,
			domain.EventCreditUnavailable,
			domain.EventTransactionError,
			domain.EventRefundTransactionSuccess,
			domain.EventRefundTransactionError:
			if err := svc.ApplyOutcome(ctx, messageID, m.Topic, envelope.Type, envelope.Data); err != nil {
				return err
			}
		case domain.EventQuantityIncremented:
			// Stock was put back for a cancelled order; the status change
			// rides on REFUND_TRANSACTION_SUCCESS, so nothing to do here.
			logger.Info("Stock restored for cancelled order",
				zap.String("order_id", envelope.Data.ID))
		default:
			logger.Error("Skipping order outcome with unknown event type",
				zap.String("type", string(envelope.Type)),
				zap.String("message_id", messageID))
			return nil
		}

		redisx.MarkSeen(ctx, rdb, group, messageID)
		return nil
	}
}
