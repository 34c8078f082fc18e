package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/config"
	"tally/internal/feed"
	"tally/internal/feed/bankfeed"
	"tally/internal/feed/payproc"
	"tally/internal/gsheet"
	applog "tally/internal/log"
	"tally/internal/report"
	"tally/internal/services"
	"tally/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting tally-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sheetsClient, err := gsheet.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	// Exports only need the bank feed; the processor is left nil unless
	// configured, in which case revenue columns stay empty anyway.
	var payments feed.PaymentProvider
	if cfg.PaymentsConfigured() {
		if payments, err = payproc.NewFromEnv(); err != nil {
			logger.Error("Failed to initialize payment processor client", "error", err)
			os.Exit(1)
		}
	}
	var bank feed.BankFeed
	if cfg.BankConfigured() {
		if bank, err = bankfeed.NewFromEnv(); err != nil {
			logger.Error("Failed to initialize bank feed client", "error", err)
			os.Exit(1)
		}
	}

	compiler := report.NewCompiler(repo, payments, bank)
	processor := services.NewExportProcessor(compiler, sheetsClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	err = amqp.RunExportConsumer(ctx, cfg.AMQPURL, cfg.AMQPExchange, func(msg *amqp.ExportRequestMessage) error {
		return processor.Handle(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Export consumer failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
