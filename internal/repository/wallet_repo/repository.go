package wallet_repo

import (
	"context"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
)

type WalletRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, wallet *domain.Wallet) error
	GetByID(ctx context.Context, querier domain.Querier, id string) (*domain.Wallet, error)
	GetByUsername(ctx context.Context, querier domain.Querier, username string) (*domain.Wallet, error)
	// DebitTx atomically decrements the balance, failing with
	// domain.ErrInsufficientFunds when the balance would go negative. The
	// conditional update is the serialization point for concurrent payments
	// against the same wallet.
	DebitTx(ctx context.Context, querier domain.Querier, walletID string, amount float64) error
	CreditTx(ctx context.Context, querier domain.Querier, walletID string, amount float64) error
	CreateTransactionTx(ctx context.Context, querier domain.Querier, txn *domain.Transaction) error
	GetTransaction(ctx context.Context, querier domain.Querier, orderID string, reason domain.TransactionReason) (*domain.Transaction, error)
}
