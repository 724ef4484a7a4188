package domain

import (
	"errors"
	"time"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletAlreadyExists = errors.New("wallet already exists")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrNothingToRefund     = errors.New("no completed payment to refund")
)

// Wallet is the per-customer ledger head. The configured bank wallet is the
// counterparty of every order payment and refund.
type Wallet struct {
	ID        string
	Username  string
	Balance   float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TransactionReason string

const (
	ReasonOrderPayment TransactionReason = "ORDER_PAYMENT"
	ReasonOrderRefund  TransactionReason = "ORDER_REFUND"
	ReasonTopUp        TransactionReason = "TOP_UP"
)

// Transaction is immutable once created; it is written in the same local
// transaction as the balance changes it reports.
type Transaction struct {
	ID               string
	OrderID          string
	Amount           float64
	SenderWalletID   string
	ReceiverWalletID string
	Reason           TransactionReason
	CreatedAt        time.Time
}
