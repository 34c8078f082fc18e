package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/categorize"
	"tally/internal/config"
	"tally/internal/feed"
	"tally/internal/feed/bankfeed"
	"tally/internal/feed/payproc"
	apphttp "tally/internal/http"
	"tally/internal/learned"
	applog "tally/internal/log"
	"tally/internal/report"
	"tally/internal/rules"
	"tally/internal/services"
	"tally/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	table := rules.Default()
	if cfg.RuleFile != "" {
		table, err = rules.LoadFile(cfg.RuleFile)
		if err != nil {
			logger.Error("Failed to load rule table", "error", err, "path", cfg.RuleFile)
			os.Exit(1)
		}
		logger.Info("Loaded rule table", "path", cfg.RuleFile, "rules", table.Len())
	}

	var payments feed.PaymentProvider
	if cfg.PaymentsConfigured() {
		payments, err = payproc.NewFromEnv()
		if err != nil {
			logger.Error("Failed to initialize payment processor client", "error", err)
			os.Exit(1)
		}
		logger.Info("Payment processor connected", "base_url", cfg.PayprocBaseURL)
	} else {
		logger.Warn("Payment processor not configured, revenue will report disconnected")
	}

	var bank feed.BankFeed
	if cfg.BankConfigured() {
		bank, err = bankfeed.NewFromEnv()
		if err != nil {
			logger.Error("Failed to initialize bank feed client", "error", err)
			os.Exit(1)
		}
		logger.Info("Bank feed connected", "base_url", cfg.BankfeedBaseURL)
	} else {
		logger.Warn("Bank feed not configured, expenses will be manual-only")
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("AMQP not configured, export requests and events are disabled")
	}

	mappings := learned.NewCachedSource(repo, cfg.MappingCacheTTL)
	svc := services.NewLedgerService(repo, amqpClient, mappings)
	defer svc.Close()

	engine := categorize.NewEngine(repo, bank, table, mappings)
	compiler := report.NewCompiler(repo, payments, bank)

	srv := apphttp.NewServer(":"+cfg.Port, svc, engine, compiler)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

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

	logger.Info("Starting tally server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
