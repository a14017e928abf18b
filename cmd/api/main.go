package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/olonts/salein-reminders/internal/config"
	"github.com/olonts/salein-reminders/internal/handler"
	"github.com/olonts/salein-reminders/internal/infra/postgresql"
	"github.com/olonts/salein-reminders/internal/infra/postgresql/migrations"
	infraredis "github.com/olonts/salein-reminders/internal/infra/redis"
	"github.com/olonts/salein-reminders/internal/notify"
	"github.com/olonts/salein-reminders/internal/observability"
	"github.com/olonts/salein-reminders/internal/provider"
	"github.com/olonts/salein-reminders/internal/repository"
	"github.com/olonts/salein-reminders/internal/service"
	"github.com/olonts/salein-reminders/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()

	reminderRepo := repository.NewGormReminderRepo(db)
	invoiceRepo := repository.NewGormInvoiceRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)

	sender, err := provider.NewResendSender(cfg.ResendAPIKey, cfg.SendTimeout)
	if err != nil {
		logger.Fatal("resend sender initialization failed", zap.Error(err))
	}

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	deduper, err := infraredis.NewRedisDeduper(rdb, 0)
	if err != nil {
		logger.Fatal("deduper initialization failed", zap.Error(err))
	}
	notifier := notify.NewDedupNotifier(notify.NewLogNotifier(logger), deduper, logger)

	scheduler, err := service.NewScheduler(reminderRepo, logger)
	if err != nil {
		logger.Fatal("scheduler initialization failed", zap.Error(err))
	}

	dispatcher, err := service.NewDispatcher(
		reminderRepo,
		attemptRepo,
		sender,
		rateLimiter,
		notifier,
		service.DispatcherConfig{
			Interval:    cfg.PollInterval,
			Limit:       cfg.PollLimit,
			Concurrency: cfg.DispatchConcurrency,
			MaxRetries:  cfg.MaxRetries,
			SendTimeout: cfg.SendTimeout,
			EmailFrom:   cfg.EmailFrom,
		},
		logger,
	)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}
	dispatcher.SetMetrics(metrics)

	invoiceService, err := service.NewInvoiceService(
		invoiceRepo, scheduler, sender, rateLimiter, cfg.EmailFrom, cfg.SendTimeout, logger,
	)
	if err != nil {
		logger.Fatal("invoice service initialization failed", zap.Error(err))
	}

	reminderService, err := service.NewReminderService(
		reminderRepo, attemptRepo, sender, rateLimiter, cfg.EmailFrom, cfg.SendTimeout, logger,
	)
	if err != nil {
		logger.Fatal("reminder service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterInvoiceRoutes(app, invoiceService); err != nil {
		logger.Fatal("invoice route registration failed", zap.Error(err))
	}
	if err := handler.RegisterReminderRoutes(app, reminderService); err != nil {
		logger.Fatal("reminder route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("dispatcher started",
			zap.Duration("pollInterval", cfg.PollInterval),
			zap.Int("maxRetries", cfg.MaxRetries),
		)
		return dispatcher.Start(ctx)
	})

	g.Go(func() error {
		logger.Info("api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}
