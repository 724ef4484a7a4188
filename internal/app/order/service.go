package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
	"github.com/francescomedina/web-app-2-sub000/internal/mail"
	"github.com/francescomedina/web-app-2-sub000/internal/outbox"
	"github.com/francescomedina/web-app-2-sub000/internal/repository/inbox_repo"
	"github.com/francescomedina/web-app-2-sub000/internal/repository/order_repo"
	"github.com/francescomedina/web-app-2-sub000/internal/util"
)

// outcomeStatus is the saga reaction table: which terminal status each
// consumed outcome event drives the order into.
var outcomeStatus = map[domain.EventType]domain.OrderStatus{
	domain.EventQuantityDecremented:             domain.OrderStatusIssued,
	domain.EventQuantityUnavailableNotPurchased: domain.OrderStatusFailedQuantityUnavailable,
	domain.EventRefundTransactionSuccess:        domain.OrderStatusCanceled,
	domain.EventCreditUnavailable:               domain.OrderStatusFailedCreditUnavailable,
	domain.EventTransactionError:                domain.OrderStatusFailedTransactionError,
	domain.EventRefundTransactionError:          domain.OrderStatusFailedRefundTransactionError,
}

type OrderService interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error)
	GetOrder(ctx context.Context, orderID string) (*OrderResponse, error)
	GetOrdersByBuyer(ctx context.Context, buyer string) ([]*OrderResponse, error)
	CancelOrder(ctx context.Context, orderID string) error
	ApplyOutcome(ctx context.Context, messageID, topic string, eventType domain.EventType, payload domain.OrderPayload) error
}

type orderService struct {
	db               domain.TxBeginner
	orderRepo        order_repo.OrderRepository
	inboxRepo        inbox_repo.InboxRepository
	publisher        *outbox.Publisher
	mailer           mail.Sender
	orderEventsTopic string
	consumerGroup    string
	adminEmail       string
	logger           *zap.Logger
}

func NewOrderService(
	db domain.TxBeginner,
	orderRepo order_repo.OrderRepository,
	inboxRepo inbox_repo.InboxRepository,
	publisher *outbox.Publisher,
	mailer mail.Sender,
	orderEventsTopic string,
	consumerGroup string,
	adminEmail string,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		db:               db,
		orderRepo:        orderRepo,
		inboxRepo:        inboxRepo,
		publisher:        publisher,
		mailer:           mailer,
		orderEventsTopic: orderEventsTopic,
		consumerGroup:    consumerGroup,
		adminEmail:       adminEmail,
		logger:           logger,
	}
}

// CreateOrder persists the order and its ORDER_CREATED outbox event in one
// local transaction; the relay takes it from there.
func (s *orderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error) {
	items := make([]domain.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.LineItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	order, err := domain.NewOrder(util.GenerateUUID(), req.Buyer, items)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.orderRepo.CreateTx(ctx, tx, order); err != nil {
		s.logger.Error("Failed to persist new order", zap.String("order_id", order.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	if _, err := s.publisher.Publish(ctx, tx, s.orderEventsTopic, domain.EventOrderCreated, domain.PayloadFromOrder(order)); err != nil {
		s.logger.Error("Failed to enqueue ORDER_CREATED event", zap.String("order_id", order.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to enqueue order created event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Order created and ORDER_CREATED added to outbox", zap.String("order_id", order.ID))
	return mapOrderToResponse(order), nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, s.db, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		s.logger.Error("Failed to get order", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return mapOrderToResponse(order), nil
}

func (s *orderService) GetOrdersByBuyer(ctx context.Context, buyer string) ([]*OrderResponse, error) {
	orders, err := s.orderRepo.GetByBuyer(ctx, s.db, buyer)
	if err != nil {
		s.logger.Error("Failed to get orders by buyer", zap.String("buyer", buyer), zap.Error(err))
		return nil, fmt.Errorf("failed to get orders for buyer: %w", err)
	}
	return mapOrdersToResponse(orders), nil
}

// CancelOrder starts the compensation path for an issued order: it enqueues
// ORDER_CANCELLED so the warehouse re-increments stock and the wallet refunds
// the buyer. The status moves to CANCELED only when the refund outcome comes
// back through ApplyOutcome.
func (s *orderService) CancelOrder(ctx context.Context, orderID string) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := s.orderRepo.GetByIDForUpdateTx(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusIssued {
		return domain.ErrOrderNotCancellable
	}

	if _, err := s.publisher.Publish(ctx, tx, s.orderEventsTopic, domain.EventOrderCancelled, domain.PayloadFromOrder(order)); err != nil {
		s.logger.Error("Failed to enqueue ORDER_CANCELLED event", zap.String("order_id", orderID), zap.Error(err))
		return fmt.Errorf("failed to enqueue order cancelled event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Cancellation requested, ORDER_CANCELLED added to outbox", zap.String("order_id", orderID))
	return nil
}

// ApplyOutcome moves the order along the status machine in reaction to a saga
// outcome event. Redeliveries are absorbed: the processed-messages insert and
// the already-in-target-status guard both make re-application a no-op.
func (s *orderService) ApplyOutcome(ctx context.Context, messageID, topic string, eventType domain.EventType, payload domain.OrderPayload) error {
	target, ok := outcomeStatus[eventType]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownEventType, eventType)
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = s.inboxRepo.MarkProcessedTx(ctx, tx, &domain.ProcessedMessage{
		MessageID:     messageID,
		ConsumerGroup: s.consumerGroup,
		Topic:         topic,
		ReceivedAt:    time.Now(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrMessageAlreadyProcessed) {
			s.logger.Info("Outcome event already processed, skipping",
				zap.String("message_id", messageID),
				zap.String("order_id", payload.ID))
			return nil
		}
		return fmt.Errorf("failed to record processed message: %w", err)
	}

	order, err := s.orderRepo.GetByIDForUpdateTx(ctx, tx, payload.ID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			// An outcome event can only be produced after the order exists;
			// a miss here points at a bus or ordering bug, not a retryable
			// condition.
			return fmt.Errorf("outcome %s for unknown order %s: %w", eventType, payload.ID, domain.ErrOrderNotFound)
		}
		return err
	}

	if order.Status == target {
		s.logger.Info("Order already in target status, absorbing redelivery",
			zap.String("order_id", order.ID),
			zap.String("status", string(target)))
		return tx.Commit()
	}
	if !order.CanTransition(target) {
		s.logger.Warn("Ignoring outcome event for order in terminal status",
			zap.String("order_id", order.ID),
			zap.String("current_status", string(order.Status)),
			zap.String("event_type", string(eventType)))
		return tx.Commit()
	}

	if err := s.orderRepo.UpdateStatusTx(ctx, tx, order.ID, target, payload.Delivery); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Order status updated from saga outcome",
		zap.String("order_id", order.ID),
		zap.String("old_status", string(order.Status)),
		zap.String("new_status", string(target)),
		zap.String("event_type", string(eventType)))

	s.notify(order.Buyer, order.ID, target)
	return nil
}

// notify is fire-and-forget: it must never delay or fail a status transition.
func (s *orderService) notify(buyer, orderID string, status domain.OrderStatus) {
	subject := fmt.Sprintf("Order %s: %s", orderID, status)
	body := fmt.Sprintf("Your order %s is now in status %s.", orderID, status)
	go func() {
		if err := s.mailer.Send(buyer, subject, body); err != nil {
			s.logger.Warn("Failed to notify buyer", zap.String("order_id", orderID), zap.Error(err))
		}
		if err := s.mailer.Send(s.adminEmail, subject, body); err != nil {
			s.logger.Warn("Failed to notify admin", zap.String("order_id", orderID), zap.Error(err))
		}
	}()
}
