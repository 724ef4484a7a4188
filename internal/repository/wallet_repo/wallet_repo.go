package wallet_repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
)

type walletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) *walletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) CreateTx(ctx context.Context, querier domain.Querier, wallet *domain.Wallet) error {
	query := `
		INSERT INTO wallets (id, username, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := querier.ExecContext(ctx, query,
		wallet.ID, wallet.Username, wallet.Balance, wallet.CreatedAt, wallet.UpdatedAt)
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return domain.ErrWalletAlreadyExists
		}
		return fmt.Errorf("failed to create wallet for %s: %w", wallet.Username, err)
	}
	return nil
}

func (r *walletRepository) GetByID(ctx context.Context, querier domain.Querier, id string) (*domain.Wallet, error) {
	return r.getWallet(ctx, querier, `id = $1`, id)
}

func (r *walletRepository) GetByUsername(ctx context.Context, querier domain.Querier, username string) (*domain.Wallet, error) {
	return r.getWallet(ctx, querier, `username = $1`, username)
}

func (r *walletRepository) getWallet(ctx context.Context, querier domain.Querier, where string, arg any) (*domain.Wallet, error) {
	query := `
		SELECT id, username, balance, created_at, updated_at
		FROM wallets
		WHERE ` + where
	wallet := &domain.Wallet{}
	err := querier.QueryRowContext(ctx, query, arg).Scan(
		&wallet.ID,
		&wallet.Username,
		&wallet.Balance,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

func (r *walletRepository) DebitTx(ctx context.Context, querier domain.Querier, walletID string, amount float64) error {
	query := `
		UPDATE wallets
		SET balance = balance - $1, updated_at = $2
		WHERE id = $3 AND balance >= $1
	`
	res, err := querier.ExecContext(ctx, query, amount, time.Now(), walletID)
	if err != nil {
		return fmt.Errorf("failed to debit wallet %s: %w", walletID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for wallet debit: %w", err)
	}
	if rowsAffected == 0 {
		if _, getErr := r.GetByID(ctx, querier, walletID); getErr != nil {
			return getErr
		}
		return domain.ErrInsufficientFunds
	}
	return nil
}

func (r *walletRepository) CreditTx(ctx context.Context, querier domain.Querier, walletID string, amount float64) error {
	query := `
		UPDATE wallets
		SET balance = balance + $1, updated_at = $2
		WHERE id = $3
	`
	res, err := querier.ExecContext(ctx, query, amount, time.Now(), walletID)
	if err != nil {
		return fmt.Errorf("failed to credit wallet %s: %w", walletID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for wallet credit: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrWalletNotFound
	}
	return nil
}

func (r *walletRepository) CreateTransactionTx(ctx context.Context, querier domain.Querier, txn *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, order_id, amount, sender_wallet_id, receiver_wallet_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := querier.ExecContext(ctx, query,
		txn.ID,
		txn.OrderID,
		txn.Amount,
		txn.SenderWalletID,
		txn.ReceiverWalletID,
		txn.Reason,
		txn.CreatedAt,
	)
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return domain.ErrMessageAlreadyProcessed
		}
		return fmt.Errorf("failed to create transaction for order %s: %w", txn.OrderID, err)
	}
	return nil
}

func (r *walletRepository) GetTransaction(ctx context.Context, querier domain.Querier, orderID string, reason domain.TransactionReason) (*domain.Transaction, error) {
	query := `
		SELECT id, order_id, amount, sender_wallet_id, receiver_wallet_id, reason, created_at
		FROM transactions
		WHERE order_id = $1 AND reason = $2
	`
	txn := &domain.Transaction{}
	err := querier.QueryRowContext(ctx, query, orderID, reason).Scan(
		&txn.ID,
		&txn.OrderID,
		&txn.Amount,
		&txn.SenderWalletID,
		&txn.ReceiverWalletID,
		&txn.Reason,
		&txn.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get transaction for order %s: %w", orderID, err)
	}
	return txn, nil
}
