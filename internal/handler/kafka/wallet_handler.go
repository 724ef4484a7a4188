package kafka

import (
	"context"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/francescomedina/web-app-2-sub000/internal/app/wallet"
	"github.com/francescomedina/web-app-2-sub000/internal/domain"
	kafka_infra "github.com/francescomedina/web-app-2-sub000/internal/infrastructure/kafka"
	"github.com/francescomedina/web-app-2-sub000/internal/redisx"
)

// AvailabilityOutcomeHandler consumes the warehouse's pre-payment verdicts:
// QUANTITY_AVAILABLE triggers the debit, QUANTITY_UNAVAILABLE skips it.
func AvailabilityOutcomeHandler(svc wallet.WalletService, rdb *redis.Client, group string, logger *zap.Logger) kafka_infra.MessageHandler {
	return func(ctx context.Context, m kafkago.Message) error {
		messageID, envelope, err := decodeEnvelope(m)
		if err != nil {
			logger.Error("Skipping malformed availability outcome message", zap.Error(err))
			return nil
		}

		if redisx.AlreadySeen(ctx, rdb, group, messageID) {
			logger.Info("Availability outcome already seen, skipping",
				zap.String("message_id", messageID), zap.String("order_id", envelope.Data.ID))
			return nil
		}

		switch envelope.Type {
		case domain.EventQuantityAvailable, domain.EventQuantityUnavailable:
			if err := svc.ProcessAvailabilityOutcome(ctx, messageID, m.Topic, envelope.Type, envelope.Data); err != nil {
				return err
			}
		default:
			logger.Error("Skipping availability outcome with unknown event type",
				zap.String("type", string(envelope.Type)),
				zap.String("message_id", messageID))
			return nil
		}

		redisx.MarkSeen(ctx, rdb, group, messageID)
		return nil
	}
}

// RefundRequestHandler consumes QUANTITY_UNAVAILABLE events raised after a
// completed payment, when the warehouse lost the stock to a concurrent sale.
func RefundRequestHandler(svc wallet.WalletService, rdb *redis.Client, group string, logger *zap.Logger) kafka_infra.MessageHandler {
	return func(ctx context.Context, m kafkago.Message) error {
		messageID, envelope, err := decodeEnvelope(m)
		if err != nil {
			logger.Error("Skipping malformed refund request message", zap.Error(err))
			return nil
		}

		if redisx.AlreadySeen(ctx, rdb, group, messageID) {
			logger.Info("Refund request already seen, skipping",
				zap.String("message_id", messageID), zap.String("order_id", envelope.Data.ID))
			return nil
		}

		if envelope.Type != domain.EventQuantityUnavailable {
			logger.Error("Skipping refund request with unknown event type",
				zap.String("type", string(envelope.Type)),
				zap.String("message_id", messageID))
			return nil
		}

		if err := svc.ProcessRefund(ctx, messageID, m.Topic, envelope.Data); err != nil {
			return err
		}

		redisx.MarkSeen(ctx, rdb, group, messageID)
		return nil
	}
}

// WalletOrderEventsHandler consumes the order lifecycle topic on the wallet
// side. ORDER_CREATED is the warehouse's cue, not ours; ORDER_CANCELLED
// refunds a previously paid order.
func WalletOrderEventsHandler(svc wallet.WalletService, rdb *redis.Client, group string, logger *zap.Logger) kafka_infra.MessageHandler {
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
		case domain.EventOrderCancelled:
			if err := svc.ProcessRefund(ctx, messageID, m.Topic, envelope.Data); err != nil {
				return err
			}
		case domain.EventOrderCreated:
			// Payment waits for the warehouse availability verdict.
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
