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
	"github.com/shopspring/decimal"

	"marquee/internal/amqp"
	"marquee/internal/backend"
	"marquee/internal/config"
	"marquee/internal/core"
	apphttp "marquee/internal/http"
	"marquee/internal/ledger"
	applog "marquee/internal/log"
	"marquee/internal/reconcile"
	"marquee/internal/session"
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
	logger.Info("Gateway backend initialized", "backend", cfg.GatewayBackend)

	// AMQP is best-effort: saves still land in the store when the broker
	// is down, only the sheet export notification is lost.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without export notifications", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	// The saved hook needs the server for cache invalidation, but the
	// server needs the session which needs the ledger. The hook only
	// fires after a save, by which point srv is set.
	var srv *apphttp.Server
	savedHook := func(ctx context.Context, sel core.Selection, records []core.PaymentRecord) {
		if srv != nil {
			srv.InvalidateShow(sel.Venue, sel.ShowDate)
		}
		if amqpClient == nil {
			return
		}
		total := decimal.Zero
		for _, r := range records {
			total = total.Add(r.Amount)
		}
		if err := amqpClient.PublishPaymentsSaved(ctx, sel.Venue, sel.ShowDate, len(records), total.StringFixed(2)); err != nil {
			logger.Warn("Failed to publish payments-saved message",
				"venue", sel.Venue, "show_date", sel.ShowDate, "error", err)
		}
	}

	lg := ledger.New(result.Backend,
		ledger.WithDebounce(cfg.LedgerDebounce),
		ledger.WithStatusHold(cfg.LedgerStatusHold),
		ledger.WithSaveTimeout(cfg.LedgerSaveTimeout),
		ledger.WithSavedHook(savedHook),
	)
	defer lg.Close()

	calc := reconcile.NewCalculator(core.DefaultFeeTable())
	sess := session.New(result.Backend, calc, lg)

	// Restore the last viewed show so a restart lands where the operator
	// left off. Failure is not fatal; the dashboard starts unselected.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if resumed, err := sess.Resume(startupCtx); err != nil {
		logger.Warn("Could not resume previous show", "error", err)
	} else if resumed {
		sel := sess.Selected()
		logger.Info("Resumed previous show", "venue", sel.Venue, "show_date", sel.ShowDate)
	}
	startupCancel()

	httpLogger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	srv = apphttp.NewServer(cfg.Port, sess, httpLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		// Push any debounced edits out before the listener closes.
		lg.Flush()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting marquee server", "port", cfg.Port, "backend", cfg.GatewayBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
