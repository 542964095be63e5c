package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lessonwire/core/internal/app"
	"github.com/lessonwire/core/internal/clock"
	"github.com/lessonwire/core/internal/config"
	"github.com/lessonwire/core/internal/event"
	"github.com/lessonwire/core/internal/handler"
	"github.com/lessonwire/core/internal/notify"
	"github.com/lessonwire/core/internal/service"
	"github.com/lessonwire/core/internal/storage/postgres"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("starting settlement engine",
		zap.String("environment", cfg.Environment),
		zap.String("http_addr", cfg.HTTPAddr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir)
	if err != nil {
		logger.Fatal("init migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}
	if version, err := migrator.Version(ctx); err == nil {
		logger.Info("database migrated", zap.Int64("version", version))
	}
	migrator.Close()

	store := postgres.NewStore(pool)

	var events event.Publisher = event.Nop{}
	if cfg.AMQPURL != "" {
		pub, err := event.NewAMQPPublisher(cfg.AMQPURL, logger)
		if err != nil {
			logger.Fatal("connect to amqp", zap.Error(err))
		}
		defer pub.Close()
		events = pub
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken, logger)
		if err != nil {
			logger.Fatal("init telegram notifier", zap.Error(err))
		}
		notifier = tg
	}

	clk := clock.System{}
	escrow := service.NewEscrowService(store, clk, logger)
	bookings := service.NewBookingService(store, escrow, events, notifier, clk, logger)
	disputes := service.NewDisputeService(store, escrow, events, notifier, clk, logger)
	reschedules := service.NewRescheduleService(store, events, notifier, clk, logger)
	payouts := service.NewPayoutService(store, clk, logger)

	scheduler := app.NewScheduler(escrow, reschedules, cfg.SweepInterval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	h := handler.New(bookings, disputes, reschedules, payouts, store, logger)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
}
