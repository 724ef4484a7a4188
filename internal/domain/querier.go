package domain

import (
	"context"
	"database/sql"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so repository methods run
// unchanged inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is the open local transaction a saga reaction runs in. *sql.Tx satisfies
// it.
type Tx interface {
	Querier
	Commit() error
	Rollback() error
}

// TxBeginner opens local transactions and doubles as a plain Querier for
// single-statement reads. The database handle wrapper satisfies it in
// production; test doubles stand in for it elsewhere.
type TxBeginner interface {
	Querier
	BeginTx(ctx context.Context) (Tx, error)
}
