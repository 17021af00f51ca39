package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ciclo/internal/amqp"
	"ciclo/internal/cli"
	"ciclo/internal/services"
	"ciclo/internal/sheets"
	gsheet "ciclo/internal/sheets/google"
	"ciclo/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger()
	logger.Info("Starting ciclo-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	storeResult := cli.InitSnapshotStore(logger, cfg)
	defer func() {
		if err := storeResult.Cleanup(); err != nil {
			logger.Error("Store cleanup error", "error", err)
		}
	}()

	// Initialize Google Sheets exporter for closed-cycle reports (optional)
	var exporter sheets.CycleExporter
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter = sheetsClient
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	// The worker needs AMQP; there is nothing to do without the feed.
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPExpenseQueue, cfg.AMQPEventsQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	service, err := services.NewCycleService(context.Background(), storeResult.Store, nil, cfg.AccountID, nil)
	if err != nil {
		logger.Error("Failed to initialize cycle service", "error", err, "account_id", cfg.AccountID)
		os.Exit(1)
	}

	feedWorker := worker.NewFeedWorker(service, amqpClient, exporter, cfg.PersistInterval)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- feedWorker.Run(ctx)
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())

		// Give the worker time to finish current operations
		logger.Info("Shutting down worker...")
		cancel()

		select {
		case <-runErr:
			logger.Info("Worker shutdown complete")
		case <-time.After(30 * time.Second):
			logger.Warn("Shutdown timeout reached")
		}
	case err := <-runErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Worker failed", "error", err)
			os.Exit(1)
		}
	}
}
