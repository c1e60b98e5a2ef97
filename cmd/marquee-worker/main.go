package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"marquee/internal/amqp"
	"marquee/internal/backend"
	"marquee/internal/config"
	gsheet "marquee/internal/sheets/google"
	"marquee/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting marquee-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// The worker reads the authoritative payment records from the same
	// gateway the server writes to, not from the message payload.
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid gateway backend configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize gateway backend", "error", err, "backend", cfg.GatewayBackend)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}
	}()

	var sheetsClient *gsheet.Client
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err = gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sheetsClient != nil {
		exportWorker := worker.NewExportWorker(result.Backend, sheetsClient)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			for {
				err := amqpClient.ConsumePaymentsSaved(gctx, func(msg *amqp.PaymentsSavedMessage) error {
					return exportWorker.HandleSavedMessage(gctx, msg)
				})
				if errors.Is(err, context.Canceled) || gctx.Err() != nil {
					return nil
				}
				logger.Error("Message consumption failed, redialing", "error", err)
				if err := amqpClient.Redial(gctx); err != nil {
					return err
				}
			}
		})
		go func() {
			if err := g.Wait(); err != nil {
				logger.Error("Worker stopped", "error", err)
				cancel()
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - no export destination available")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give the in-flight export a moment to finish before the process exits.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
