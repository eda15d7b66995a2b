package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finledger/internal/amqp"
	"finledger/internal/cards"
	"finledger/internal/config"
	"finledger/internal/core"
	apphttp "finledger/internal/http"
	"finledger/internal/ledger"
	"finledger/internal/persist"
	"finledger/internal/services"
	"finledger/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	expenseStore := ledger.NewStore(core.KindExpense)
	incomeStore := ledger.NewStore(core.KindIncome)
	cardLedger := cards.NewLedger()
	categories := services.NewCategoryService(persist.DefaultCategories())

	// Snapshot backend: the memory backend keeps nothing across restarts.
	var gateway persist.Gateway
	switch cfg.DataBackend {
	case "json":
		gw, err := persist.NewFileGateway(cfg.DataDir)
		if err != nil {
			logger.Error("Failed to initialize JSON gateway", "error", err, "dir", cfg.DataDir)
			os.Exit(1)
		}
		gateway = gw
		logger.Info("Initialized JSON snapshot backend", "dir", cfg.DataDir)
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		gateway = repo
		logger.Info("Initialized SQLite snapshot backend", "path", cfg.SQLiteDBPath)
	default:
		logger.Info("Initialized memory backend, nothing will be persisted")
	}

	if gateway != nil {
		defer gateway.Close()

		snap, err := gateway.Load()
		if err != nil {
			logger.Error("Failed to load snapshot", "error", err)
			os.Exit(1)
		}
		persist.Restore(snap, expenseStore, incomeStore, categories, cardLedger)
		logger.Info("Snapshot restored",
			"expenses", expenseStore.Count(),
			"incomes", incomeStore.Count(),
			"cards", cardLedger.Size())
	}

	// AMQP is optional; without it mutations simply go unpublished.
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer events.Close()

		// Every card-set change fans out as one event.
		cardLedger.Subscribe(func(snapshot []core.CreditCard) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := events.PublishCardsChanged(ctx, amqp.NewCardsChangedEvent(snapshot)); err != nil {
				slog.Error("Failed to publish cards changed event", "error", err)
			}
		})
		logger.Info("AMQP event publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	expenses, incomes := services.NewOperationPair(expenseStore, incomeStore, cardLedger, events)
	analytics := services.NewAnalyticsService(expenseStore, incomeStore)

	srv := apphttp.NewServer(":"+cfg.Port, expenses, incomes, categories, analytics, cardLedger, cfg.CacheSize, cfg.CacheTTL)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

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

		if gateway != nil {
			snap := persist.Collect(expenseStore, incomeStore, categories, cardLedger)
			if err := gateway.Save(snap); err != nil {
				logger.Error("Failed to save snapshot on shutdown", "error", err)
			} else {
				logger.Info("Snapshot saved",
					"expenses", len(snap.Expenses),
					"incomes", len(snap.Incomes),
					"cards", len(snap.Cards))
			}
		}
		cancel()
	}()

	logger.Info("Starting finledger server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
