package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
	"github.com/francescomedina/web-app-2-sub000/internal/outbox"
	"github.com/francescomedina/web-app-2-sub000/internal/repository/inbox_repo"
	"github.com/francescomedina/web-app-2-sub000/internal/repository/stock_repo"
	"github.com/francescomedina/web-app-2-sub000/internal/util"
)

type WarehouseService interface {
	UpsertAvailability(ctx context.Context, productID, warehouseID string, quantity, minQuantity int) (*domain.ProductAvailability, error)
	GetAvailability(ctx context.Context, productID string) (*domain.ProductAvailability, error)
	// CheckAvailability performs the pre-payment read-only stock check and
	// reports QUANTITY_AVAILABLE or QUANTITY_UNAVAILABLE to the wallet.
	CheckAvailability(ctx context.Context, messageID, topic string, payload domain.OrderPayload) error
	// DecrementQuantity commits the stock for a paid order, or requests a
	// refund when the earlier check has been invalidated by a concurrent sale.
	DecrementQuantity(ctx context.Context, messageID, topic string, payload domain.OrderPayload) error
	// IncrementQuantity compensates a cancelled order by putting the exact
	// previously decremented quantities back on the shelf.
	IncrementQuantity(ctx context.Context, messageID, topic string, payload domain.OrderPayload) error
}

type Topics struct {
	WarehouseAvailability string
	RefundRequests        string
	OrderOutcome          string
}

type warehouseService struct {
	db            domain.TxBeginner
	stockRepo     stock_repo.StockRepository
	inboxRepo     inbox_repo.InboxRepository
	publisher     *outbox.Publisher
	topics        Topics
	consumerGroup string
	logger        *zap.Logger
}

func NewWarehouseService(
	db domain.TxBeginner,
	stockRepo stock_repo.StockRepository,
	inboxRepo inbox_repo.InboxRepository,
	publisher *outbox.Publisher,
	topics Topics,
	consumerGroup string,
	logger *zap.Logger,
) WarehouseService {
	return &warehouseService{
		db:            db,
		stockRepo:     stockRepo,
		inboxRepo:     inboxRepo,
		publisher:     publisher,
		topics:        topics,
		consumerGroup: consumerGroup,
		logger:        logger,
	}
}

func (s *warehouseService) UpsertAvailability(ctx context.Context, productID, warehouseID string, quantity, minQuantity int) (*domain.ProductAvailability, error) {
	if quantity < 0 || minQuantity < 0 {
		return nil, fmt.Errorf("quantity and min quantity must be non-negative")
	}
	now := time.Now()
	availability := &domain.ProductAvailability{
		ID:          util.GenerateUUID(),
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    quantity,
		MinQuantity: minQuantity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.stockRepo.Upsert(ctx, s.db, availability); err != nil {
		s.logger.Error("Failed to upsert availability",
			zap.String("product_id", productID),
			zap.String("warehouse_id", warehouseID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to upsert availability: %w", err)
	}
	return availability, nil
}

func (s *warehouseService) GetAvailability(ctx context.Context, productID string) (*domain.ProductAvailability, error) {
	return s.stockRepo.GetByProduct(ctx, s.db, productID)
}

func (s *warehouseService) CheckAvailability(ctx context.Context, messageID, topic string, payload domain.OrderPayload) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.markProcessed(ctx, tx, messageID, topic); err != nil {
		if errors.Is(err, domain.ErrMessageAlreadyProcessed) {
			s.logger.Info("Availability check already processed, skipping",
				zap.String("message_id", messageID), zap.String("order_id", payload.ID))
			return nil
		}
		return err
	}

	outcome := domain.EventQuantityAvailable
	for _, item := range payload.Items {
		if _, err := s.stockRepo.FindAvailability(ctx, tx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, domain.ErrProductNotFound) || errors.Is(err, domain.ErrInsufficientStock) {
				s.logger.Info("Stock check failed for order",
					zap.String("order_id", payload.ID),
					zap.String("product_id", item.ProductID),
					zap.Int("requested", item.Quantity),
					zap.Error(err))
				outcome = domain.EventQuantityUnavailable
				break
			}
			return err
		}
	}

	if _, err := s.publisher.Publish(ctx, tx, s.topics.WarehouseAvailability, outcome, payload); err != nil {
		return fmt.Errorf("failed to enqueue availability outcome: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.logger.Info("Availability check completed",
		zap.String("order_id", payload.ID),
		zap.String("outcome", string(outcome)))
	return nil
}

func (s *warehouseService) DecrementQuantity(ctx context.Context, messageID, topic string, payload domain.OrderPayload) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.markProcessed(ctx, tx, messageID, topic); err != nil {
		if errors.Is(err, domain.ErrMessageAlreadyProcessed) {
			s.logger.Info("Stock decrement already processed, skipping",
				zap.String("message_id", messageID), zap.String("order_id", payload.ID))
			return nil
		}
		return err
	}

	for _, item := range payload.Items {
		if err := s.stockRepo.DecrementTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, domain.ErrProductNotFound) || errors.Is(err, domain.ErrInsufficientStock) {
				// The earlier check has been invalidated by a concurrent sale.
				// Abort the whole decrement and ask the wallet to refund.
				tx.Rollback()
				s.logger.Warn("Stock no longer available for paid order, requesting refund",
					zap.String("order_id", payload.ID),
					zap.String("product_id", item.ProductID),
					zap.Error(err))
				return s.publishOutcome(ctx, s.topics.RefundRequests, domain.EventQuantityUnavailable, payload)
			}
			return err
		}
		movement := &domain.StockMovement{
			ID:        util.GenerateUUID(),
			OrderID:   payload.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Direction: domain.MovementOut,
			CreatedAt: time.Now(),
		}
		if err := s.stockRepo.CreateMovementTx(ctx, tx, movement); err != nil {
			if errors.Is(err, domain.ErrMessageAlreadyProcessed) {
				// Movement already recorded by an earlier delivery.
				continue
			}
			return err
		}
	}

	// Delivery is assigned at fulfillment; the order service copies it onto
	// the order when it applies QUANTITY_DECREMENTED.
	if payload.Delivery == "" {
		payload.Delivery = "shipment-" + util.GenerateUUID()
	}
	if _, err := s.publisher.Publish(ctx, tx, s.topics.OrderOutcome, domain.EventQuantityDecremented, payload); err != nil {
		return fmt.Errorf("failed to enqueue decrement outcome: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.logger.Info("Stock decremented for order", zap.String("order_id", payload.ID))
	return nil
}

func (s *warehouseService) IncrementQuantity(ctx context.Context, messageID, topic string, payload domain.OrderPayload) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.markProcessed(ctx, tx, messageID, topic); err != nil {
		if errors.Is(err, domain.ErrMessageAlreadyProcessed) {
			s.logger.Info("Stock increment already processed, skipping",
				zap.String("message_id", messageID), zap.String("order_id", payload.ID))
			return nil
		}
		return err
	}

	// Reverse exactly what was decremented, not what the payload claims: the
	// recorded movements are the source of truth for compensation.
	outMovements, err := s.stockRepo.GetMovements(ctx, tx, payload.ID, domain.MovementOut)
	if err != nil {
		return fmt.Errorf("failed to load stock movements for order %s: %w", payload.ID, err)
	}

	for _, out := range outMovements {
		movement := &domain.StockMovement{
			ID:        util.GenerateUUID(),
			OrderID:   payload.ID,
			ProductID: out.ProductID,
			Quantity:  out.Quantity,
			Direction: domain.MovementIn,
			CreatedAt: time.Now(),
		}
		if err := s.stockRepo.CreateMovementTx(ctx, tx, movement); err != nil {
			if errors.Is(err, domain.ErrMessageAlreadyProcessed) {
				continue
			}
			return err
		}
		if err := s.stockRepo.IncrementTx(ctx, tx, out.ProductID, out.Quantity); err != nil {
			return err
		}
	}

	if _, err := s.publisher.Publish(ctx, tx, s.topics.OrderOutcome, domain.EventQuantityIncremented, payload); err != nil {
		return fmt.Errorf("failed to enqueue increment outcome: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.logger.Info("Stock incremented back for cancelled order",
		zap.String("order_id", payload.ID),
		zap.Int("movements", len(outMovements)))
	return nil
}

func (s *warehouseService) markProcessed(ctx context.Context, tx domain.Tx, messageID, topic string) error {
	return s.inboxRepo.MarkProcessedTx(ctx, tx, &domain.ProcessedMessage{
		MessageID:     messageID,
		ConsumerGroup: s.consumerGroup,
		Topic:         topic,
		ReceivedAt:    time.Now(),
	})
}

func (s *warehouseService) publishOutcome(ctx context.Context, channel string, eventType domain.EventType, payload domain.OrderPayload) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.publisher.Publish(ctx, tx, channel, eventType, payload); err != nil {
		return err
	}
	return tx.Commit()
}
