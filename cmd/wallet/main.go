package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/francescomedina/web-app-2-sub000/internal/app/wallet"
	"github.com/francescomedina/web-app-2-sub000/internal/config"
	kafka_handler "github.com/francescomedina/web-app-2-sub000/internal/handler/kafka"
	"github.com/francescomedina/web-app-2-sub000/internal/infrastructure/database"
	"github.com/francescomedina/web-app-2-sub000/internal/infrastructure/kafka"
	"github.com/francescomedina/web-app-2-sub000/internal/outbox"
	"github.com/francescomedina/web-app-2-sub000/internal/redisx"
	"github.com/francescomedina/web-app-2-sub000/internal/repository/inbox_repo"
	"github.com/francescomedina/web-app-2-sub000/internal/repository/outbox_repo"
	"github.com/francescomedina/web-app-2-sub000/internal/repository/wallet_repo"

	http_wallet "github.com/francescomedina/web-app-2-sub000/internal/handler/http/wallet"
)

func main() {
	cfg, err := config.LoadConfig("wallet")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	appLogger.Info("Wallet Service starting...")

	db := connectDB(cfg, appLogger)
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		}
	}()

	runMigrations(cfg, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := kafka.EnsureTopics(ctx, cfg.GetKafkaBrokers(), []string{
		cfg.Topics.OrderEvents,
		cfg.Topics.WarehouseAvailability,
		cfg.Topics.WalletOutcome,
		cfg.Topics.RefundRequests,
		cfg.Topics.OrderOutcome,
	}, appLogger); err != nil {
		appLogger.Fatal("Failed to ensure Kafka topics", zap.Error(err))
	}

	producer := kafka.NewProducer(cfg.GetKafkaBrokers(), appLogger)
	defer func() {
		if err := producer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		}
	}()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	walletRepository := wallet_repo.NewWalletRepository(db)
	inboxRepository := inbox_repo.NewInboxRepository(db)
	outboxRepository := outbox_repo.NewOutboxRepository(db)
	publisher := outbox.NewPublisher(outboxRepository)
	dbHandle := database.NewHandle(db)

	walletService := wallet.NewWalletService(
		dbHandle,
		walletRepository,
		inboxRepository,
		publisher,
		wallet.Topics{
			WalletOutcome: cfg.Topics.WalletOutcome,
			OrderOutcome:  cfg.Topics.OrderOutcome,
		},
		cfg.BankWalletID,
		cfg.ConsumerGroup,
		appLogger.With(zap.String("component", "WalletService")),
	)

	processor := outbox.NewProcessor(dbHandle, outboxRepository, producer,
		cfg.OutboxPollInterval, cfg.OutboxPollTimeout,
		appLogger.With(zap.String("component", "OutboxProcessor")))
	go processor.Start(ctx)

	consumers := []*kafka.Consumer{
		kafka.NewConsumer(
			cfg.GetKafkaBrokers(),
			cfg.Topics.WarehouseAvailability,
			cfg.ConsumerGroup,
			kafka_handler.AvailabilityOutcomeHandler(walletService, rdb, cfg.ConsumerGroup,
				appLogger.With(zap.String("component", "AvailabilityOutcomeHandler"))),
			appLogger.With(zap.String("component", "AvailabilityOutcomeConsumer")),
		),
		kafka.NewConsumer(
			cfg.GetKafkaBrokers(),
			cfg.Topics.RefundRequests,
			cfg.ConsumerGroup,
			kafka_handler.RefundRequestHandler(walletService, rdb, cfg.ConsumerGroup,
				appLogger.With(zap.String("component", "RefundRequestHandler"))),
			appLogger.With(zap.String("component", "RefundRequestConsumer")),
		),
		kafka.NewConsumer(
			cfg.GetKafkaBrokers(),
			cfg.Topics.OrderEvents,
			cfg.ConsumerGroup,
			kafka_handler.WalletOrderEventsHandler(walletService, rdb, cfg.ConsumerGroup,
				appLogger.With(zap.String("component", "WalletOrderEventsHandler"))),
			appLogger.With(zap.String("component", "WalletOrderEventsConsumer")),
		),
	}
	for _, c := range consumers {
		c := c
		go func() {
			if err := c.Consume(ctx); err != nil && err != context.Canceled {
				appLogger.Error("Kafka consumer stopped", zap.Error(err))
			}
		}()
		defer c.Close()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	http_wallet.RegisterRoutes(r, walletService, appLogger)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	appLogger.Info("Wallet Service started", zap.String("address", cfg.HTTPAddr))

	<-sigChan

	appLogger.Info("Shutting down Wallet Service...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Wallet Service graceful shutdown failed", zap.Error(err))
	}
	appLogger.Info("Wallet Service stopped.")
}

func connectDB(cfg *config.Config, logger *zap.Logger) *sql.DB {
	dbConfig := database.DBConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.Name,
		SSLMode:  cfg.DBConfig.SSLMode,
	}

	var db *sql.DB
	var err error
	maxRetries := 10
	retryDelay := 5 * time.Second

	logger.Info("Waiting for database to be available...")
	for i := 0; i < maxRetries; i++ {
		db, err = database.NewPostgresDB(dbConfig)
		if err == nil {
			logger.Info("Successfully connected to PostgreSQL database!")
			return db
		}
		logger.Warn(fmt.Sprintf("Failed to connect to database (attempt %d/%d): %v. Retrying in %s...",
			i+1, maxRetries, err, retryDelay))
		time.Sleep(retryDelay)
	}

	logger.Fatal("Could not connect to database after multiple retries. Exiting.", zap.Error(err))
	return nil
}

func runMigrations(cfg *config.Config, logger *zap.Logger) {
	logger.Info("Running database migrations...")
	m, err := migrate.New(cfg.MigrationsPath, cfg.GetDBMigrationConnectionString())
	if err != nil {
		logger.Fatal("Failed to create migrate instance", zap.Error(err))
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.Info("Database migrations completed successfully (or no new migrations).")
}
