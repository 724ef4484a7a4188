package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
)

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func NewPostgresDB(cfg DBConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

type sqlHandle struct {
	*sql.DB
}

func (h sqlHandle) BeginTx(ctx context.Context) (domain.Tx, error) {
	return h.DB.BeginTx(ctx, nil)
}

// NewHandle adapts the connection pool to the transaction beginner the
// services and the outbox relay are built against.
func NewHandle(db *sql.DB) domain.TxBeginner {
	return sqlHandle{DB: db}
}
