package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/francescomedina/web-app-2-sub000/internal/config"
	"github.com/francescomedina/web-app-2-sub000/internal/gateway"
)

func main() {
	cfg, err := config.LoadConfig("gateway")
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
	appLogger.Info("API Gateway starting...")

	router, err := gateway.NewRouter(gateway.Upstreams{
		Order:     cfg.Upstreams.Order,
		Wallet:    cfg.Upstreams.Wallet,
		Warehouse: cfg.Upstreams.Warehouse,
	}, appLogger.With(zap.String("component", "GatewayProxy")))
	if err != nil {
		appLogger.Fatal("Failed to create gateway router", zap.Error(err))
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	appLogger.Info("API Gateway started", zap.String("address", cfg.HTTPAddr))

	<-sigChan

	appLogger.Info("Shutting down API Gateway...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("API Gateway graceful shutdown failed", zap.Error(err))
	}
	appLogger.Info("API Gateway stopped.")
}
