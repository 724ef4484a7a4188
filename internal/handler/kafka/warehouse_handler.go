package kafka

import (
	"context"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/francescomedina/web-app-2-sub000/internal/app/warehouse"
	"github.com/francescomedina/web-app-2-sub000/internal/domain"
	kafka_infra "github.com/francescomedina/web-app-2-sub000/internal/infrastructure/kafka"
	"github.com/francescomedina/web-app-2-sub000/internal/redisx"
)

// WarehouseOrderEventsHandler consumes the order lifecycle topic on the
// warehouse side: ORDER_CREATED triggers the availability check,
// ORDER_CANCELLED puts the decremented stock back.
func WarehouseOrderEventsHandler(svc warehouse.WarehouseService, rdb *redis.Client, group string, logger *zap.Logger) kafka_infra.MessageHandler {
	return func(ctx context.Context, m kafkago.Message) error {
		messageID, envelope, err := decodeEnvelope(m)
		if err != nil {
			logger.Error("Skipping malformed order event message", zap.Error(err))
			return nil
		}

		if redisx.AlreadySeen(ctx, rdb, group, messageID) {
			logger.Info("Order event already seen, skipping",
				zap.String("message_id", messageID), zap.String("order_id", envelope.Data.ID))
			return nil
		}

		switch envelope.Type {
		case domain.EventOrderCreated:
			if err := svc.CheckAvailability(ctx, messageID, m.Topic, envelope.Data); err != nil {
				return err
			}
		case domain.EventOrderCancelled:
			if err := svc.IncrementQuantity(ctx, messageID, m.Topic, envelope.Data); err != nil {
				return err
			}
		default:
			logger.Error("Skipping order event with unknown event type",
				zap.String("type", string(envelope.Type)),
				zap.String("message_id", messageID))
			return nil
		}

		redisx.MarkSeen(ctx, rdb, group, messageID)
		return nil
	}
}

// PaymentOutcomeHandler consumes successful payments and commits the stock
// they paid for.
func PaymentOutcomeHandler(svc warehouse.WarehouseService, rdb *redis.Client, group string, logger *zap.Logger) kafka_infra.MessageHandler {
	return func(ctx context.Context, m kafkago.Message) error {
		messageID, envelope, err := decodeEnvelope(m)
		if err != nil {
			logger.Error("Skipping malformed payment outcome message", zap.Error(err))
			return nil
		}

		if redisx.AlreadySeen(ctx, rdb, group, messageID) {
			logger.Info("Payment outcome already seen, skipping",
				zap.String("message_id", messageID), zap.String("order_id", envelope.Data.ID))
			return nil
		}

		if envelope.Type != domain.EventTransactionSuccess {
			logger.Error("Skipping payment outcome with unknown event type",
				zap.String("type", string(envelope.Type)),
				zap.String("message_id", messageID))
			return nil
		}

		if err := svc.DecrementQuantity(ctx, messageID, m.Topic, envelope.Data); err != nil {
			return err
		}

		redisx.MarkSeen(ctx, rdb, group, messageID)
		return nil
	}
}
