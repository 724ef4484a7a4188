package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
	"github.com/francescomedina/web-app-2-sub000/internal/outbox"
	"github.com/francescomedina/web-app-2-sub000/internal/repository/inbox_repo"
	"github.com/francescomedina/web-app-2-sub000/internal/repository/wallet_repo"
	"github.com/francescomedina/web-app-2-sub000/internal/util"
)

type WalletService interface {
	CreateWallet(ctx context.Context, username string, initialBalance float64) (*domain.Wallet, error)
	GetWallet(ctx context.Context, username string) (*domain.Wallet, error)
	TopUp(ctx context.Context, username string, amount float64) (*domain.Wallet, error)
	// ProcessAvailabilityOutcome reacts to the warehouse's pre-payment check:
	// available stock triggers the debit, unavailable stock skips payment and
	// reports QUANTITY_UNAVAILABLE_NOT_PURCHASED straight to the order service.
	ProcessAvailabilityOutcome(ctx context.Context, messageID, topic string, eventType domain.EventType, payload domain.OrderPayload) error
	// ProcessRefund compensates a completed payment (late stock conflict or
	// post-hoc cancellation) by crediting the buyer back from the bank wallet.
	ProcessRefund(ctx context.Context, messageID, topic string, payload domain.OrderPayload) error
}

type Topics struct {
	WalletOutcome string
	OrderOutcome  string
}

type walletService struct {
	db            domain.TxBeginner
	walletRepo    wallet_repo.WalletRepository
	inboxRepo     inbox_repo.InboxRepository
	publisher     *outbox.Publisher
	topics        Topics
	bankWalletID  string
	consumerGroup string
	logger        *zap.Logger
}

func NewWalletService(
	db domain.TxBeginner,
	walletRepo wallet_repo.WalletRepository,
	inboxRepo inbox_repo.InboxRepository,
	publisher *outbox.Publisher,
	topics Topics,
	bankWalletID string,
	consumerGroup string,
	logger *zap.Logger,
) WalletService {
	return &walletService{
		db:            db,
		walletRepo:    walletRepo,
		inboxRepo:     inboxRepo,
		publisher:     publisher,
		topics:        topics,
		bankWalletID:  bankWalletID,
		consumerGroup: consumerGroup,
		logger:        logger,
	}
}

func (s *walletService) CreateWallet(ctx context.Context, username string, initialBalance float64) (*domain.Wallet, error) {
	now := time.Now()
	wallet := &domain.Wallet{
		ID:        util.GenerateUUID(),
		Username:  username,
		Balance:   initialBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.walletRepo.CreateTx(ctx, s.db, wallet); err != nil {
		if errors.Is(err, domain.ErrWalletAlreadyExists) {
			return nil, domain.ErrWalletAlreadyExists
		}
		s.logger.Error("Failed to create wallet", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	s.logger.Info("Wallet created", zap.String("wallet_id", wallet.ID), zap.String("username", username))
	return wallet, nil
}

func (s *walletService) GetWallet(ctx context.Context, username string) (*domain.Wallet, error) {
	return s.walletRepo.GetByUsername(ctx, s.db, username)
}

// TopUp credits the wallet and records the matching TOP_UP transaction in one
// local transaction, so the balance stays explainable by the ledger alone. The
// money comes from outside the system: the bank wallet is the issuing
// counterparty and is not debited.
func (s *walletService) TopUp(ctx context.Context, username string, amount float64) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("top-up amount must be positive")
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	wallet, err := s.walletRepo.GetByUsername(ctx, tx, username)
	if err != nil {
		return nil, err
	}
	if err := s.walletRepo.CreditTx(ctx, tx, wallet.ID, amount); err != nil {
		s.logger.Error("Failed to top up wallet", zap.String("wallet_id", wallet.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to top up wallet: %w", err)
	}

	txn := &domain.Transaction{
		ID:               util.GenerateUUID(),
		Amount:           amount,
		SenderWalletID:   s.bankWalletID,
		ReceiverWalletID: wallet.ID,
		Reason:           domain.ReasonTopUp,
		CreatedAt:        time.Now(),
	}
	// Top-ups carry no order; the transaction references itself so each one
	// stays unique under the (order_id, reason) constraint.
	txn.OrderID = txn.ID
	if err := s.walletRepo.CreateTransactionTx(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("failed to record top-up transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.logger.Info("Wallet topped up",
		zap.String("wallet_id", wallet.ID),
		zap.String("transaction_id", txn.ID),
		zap.Float64("amount", amount))
	return s.walletRepo.GetByUsername(ctx, s.db, username)
}

func (s *walletService) ProcessAvailabilityOutcome(ctx context.Context, messageID, topic string, eventType domain.EventType, payload domain.OrderPayload) error {
	switch eventType {
	case domain.EventQuantityAvailable:
		return s.pay(ctx, messageID, topic, payload, false)
	case domain.EventQuantityUnavailable:
		return s.skipPayment(ctx, messageID, topic, payload)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownEventType, eventType)
	}
}

func (s *walletService) ProcessRefund(ctx context.Context, messageID, topic string, payload domain.OrderPayload) error {
	return s.pay(ctx, messageID, topic, payload, true)
}

// skipPayment acknowledges unavailable stock without touching the ledger and
// forwards the failure to the order service as
// QUANTITY_UNAVAILABLE_NOT_PURCHASED.
func (s *walletService) skipPayment(ctx context.Context, messageID, topic string, payload domain.OrderPayload) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.markProcessed(ctx, tx, messageID, topic); err != nil {
		if errors.Is(err, domain.ErrMessageAlreadyProcessed) {
			s.logger.Info("Availability outcome already processed, skipping",
				zap.String("message_id", messageID), zap.String("order_id", payload.ID))
			return nil
		}
		return err
	}

	if _, err := s.publisher.Publish(ctx, tx, s.topics.OrderOutcome, domain.EventQuantityUnavailableNotPurchased, payload); err != nil {
		return fmt.Errorf("failed to enqueue not-purchased event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.logger.Info("Stock unavailable, payment skipped", zap.String("order_id", payload.ID))
	return nil
}

// pay atomically moves the order total between the buyer's wallet and the
// bank wallet, records the immutable transaction and enqueues the outcome
// event, all in one local transaction. refund reverses the direction.
func (s *walletService) pay(ctx context.Context, messageID, topic string, payload domain.OrderPayload, refund bool) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.markProcessed(ctx, tx, messageID, topic); err != nil {
		if errors.Is(err, domain.ErrMessageAlreadyProcessed) {
			s.logger.Info("Payment event already processed, skipping",
				zap.String("message_id", messageID), zap.String("order_id", payload.ID))
			return nil
		}
		return err
	}

	var payErr error
	if refund {
		payErr = s.refundTx(ctx, tx, payload)
	} else {
		payErr = s.debitTx(ctx, tx, payload)
	}
	if payErr != nil {
		// A storage failure is the one genuinely fatal outcome: convert it to
		// an error event in a fresh transaction so the saga still reaches a
		// terminal state instead of hanging.
		tx.Rollback()
		errType := domain.EventTransactionError
		if refund {
			errType = domain.EventRefundTransactionError
		}
		s.logger.Error("Payment processing failed, emitting error outcome",
			zap.String("order_id", payload.ID),
			zap.Bool("refund", refund),
			zap.Error(payErr))
		if pubErr := s.publishOutcome(ctx, s.topics.OrderOutcome, errType, payload); pubErr != nil {
			return fmt.Errorf("failed to emit %s after payment failure: %w", errType, pubErr)
		}
		return nil
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// debitTx runs inside the caller's transaction and only returns an error for
// unexpected storage failures; business rejections enqueue their own outcome
// event and report success.
func (s *walletService) debitTx(ctx context.Context, tx domain.Tx, payload domain.OrderPayload) error {
	if existing, err := s.walletRepo.GetTransaction(ctx, tx, payload.ID, domain.ReasonOrderPayment); err == nil {
		s.logger.Info("Payment already recorded for order, absorbing redelivery",
			zap.String("order_id", payload.ID),
			zap.String("transaction_id", existing.ID))
		return nil
	} else if err != sql.ErrNoRows {
		return err
	}

	buyerWallet, err := s.walletRepo.GetByUsername(ctx, tx, payload.Buyer)
	if err != nil {
		return fmt.Errorf("wallet lookup for buyer %s: %w", payload.Buyer, err)
	}

	amount := payload.Total()
	if err := s.walletRepo.DebitTx(ctx, tx, buyerWallet.ID, amount); err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			s.logger.Warn("Insufficient funds for order",
				zap.String("order_id", payload.ID),
				zap.String("wallet_id", buyerWallet.ID),
				zap.Float64("amount", amount))
			if _, pubErr := s.publisher.Publish(ctx, tx, s.topics.OrderOutcome, domain.EventCreditUnavailable, payload); pubErr != nil {
				return pubErr
			}
			return nil
		}
		return err
	}
	if err := s.walletRepo.CreditTx(ctx, tx, s.bankWalletID, amount); err != nil {
		return err
	}

	txn := &domain.Transaction{
		ID:               util.GenerateUUID(),
		OrderID:          payload.ID,
		Amount:           amount,
		SenderWalletID:   buyerWallet.ID,
		ReceiverWalletID: s.bankWalletID,
		Reason:           domain.ReasonOrderPayment,
		CreatedAt:        time.Now(),
	}
	if err := s.walletRepo.CreateTransactionTx(ctx, tx, txn); err != nil {
		return err
	}

	if _, err := s.publisher.Publish(ctx, tx, s.topics.WalletOutcome, domain.EventTransactionSuccess, payload); err != nil {
		return err
	}

	s.logger.Info("Payment completed",
		zap.String("order_id", payload.ID),
		zap.String("transaction_id", txn.ID),
		zap.Float64("amount", amount))
	return nil
}

func (s *walletService) refundTx(ctx context.Context, tx domain.Tx, payload domain.OrderPayload) error {
	if existing, err := s.walletRepo.GetTransaction(ctx, tx, payload.ID, domain.ReasonOrderRefund); err == nil {
		s.logger.Info("Refund already recorded for order, absorbing redelivery",
			zap.String("order_id", payload.ID),
			zap.String("transaction_id", existing.ID))
		return nil
	} else if err != sql.ErrNoRows {
		return err
	}

	original, err := s.walletRepo.GetTransaction(ctx, tx, payload.ID, domain.ReasonOrderPayment)
	if err != nil {
		if err == sql.ErrNoRows {
			// Nothing was ever debited for this order; there is nothing to
			// reverse and a human has to look at it.
			return fmt.Errorf("refund requested for order %s: %w", payload.ID, domain.ErrNothingToRefund)
		}
		return err
	}

	if err := s.walletRepo.DebitTx(ctx, tx, s.bankWalletID, original.Amount); err != nil {
		return err
	}
	if err := s.walletRepo.CreditTx(ctx, tx, original.SenderWalletID, original.Amount); err != nil {
		return err
	}

	txn := &domain.Transaction{
		ID:               util.GenerateUUID(),
		OrderID:          payload.ID,
		Amount:           original.Amount,
		SenderWalletID:   s.bankWalletID,
		ReceiverWalletID: original.SenderWalletID,
		Reason:           domain.ReasonOrderRefund,
		CreatedAt:        time.Now(),
	}
	if err := s.walletRepo.CreateTransactionTx(ctx, tx, txn); err != nil {
		return err
	}

	if _, err := s.publisher.Publish(ctx, tx, s.topics.OrderOutcome, domain.EventRefundTransactionSuccess, payload); err != nil {
		return err
	}

	s.logger.Info("Refund completed",
		zap.String("order_id", payload.ID),
		zap.String("transaction_id", txn.ID),
		zap.Float64("amount", original.Amount))
	return nil
}

func (s *walletService) markProcessed(ctx context.Context, tx domain.Tx, messageID, topic string) error {
	return s.inboxRepo.MarkProcessedTx(ctx, tx, &domain.ProcessedMessage{
		MessageID:     messageID,
		ConsumerGroup: s.consumerGroup,
		Topic:         topic,
		ReceivedAt:    time.Now(),
	})
}

// publishOutcome writes a single outbox event in its own transaction; used
// for failure outcomes after the business transaction was rolled back.
func (s *walletService) publishOutcome(ctx context.Context, channel string, eventType domain.EventType, payload domain.OrderPayload) error {
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
