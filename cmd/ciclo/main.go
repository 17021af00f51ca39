package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ciclo/internal/amqp"
	"ciclo/internal/cli"
	apphttp "ciclo/internal/http"
	"ciclo/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	// Snapshot store per STATE_BACKEND (sqlite, jsonfile, memory)
	storeResult := cli.InitSnapshotStore(logger, cfg)
	defer func() {
		if err := storeResult.Cleanup(); err != nil {
			logger.Error("Store cleanup error", "error", err)
		}
	}()
	logger.Info("Initialized snapshot store", "backend", cfg.StateBackend)

	// AMQP is optional: without it cycle-closed events are simply not published.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPExpenseQueue, cfg.AMQPEventsQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, events disabled", "error", err)
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	}

	service, err := services.NewCycleService(context.Background(), storeResult.Store, amqpClient, cfg.AccountID, nil)
	if err != nil {
		logger.Error("Failed to initialize cycle service", "error", err, "account_id", cfg.AccountID)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, service)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting ciclo server", "port", cfg.Port, "backend", cfg.StateBackend, "account_id", cfg.AccountID)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
