package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/fitcore/fitness-gatekeeper/internal/api/http"
	"github.com/fitcore/fitness-gatekeeper/internal/api/http/handlers"
	"github.com/fitcore/fitness-gatekeeper/internal/auth"
	"github.com/fitcore/fitness-gatekeeper/internal/config"
	"github.com/fitcore/fitness-gatekeeper/internal/events"
	"github.com/fitcore/fitness-gatekeeper/internal/observability"
	"github.com/fitcore/fitness-gatekeeper/internal/persistence"
	"github.com/fitcore/fitness-gatekeeper/internal/repository"
	"github.com/fitcore/fitness-gatekeeper/internal/repository/memory"
	"github.com/fitcore/fitness-gatekeeper/internal/service"
	"github.com/fitcore/fitness-gatekeeper/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var store repository.Store
	if pg.Configured() {
		store = repository.NewPostgresStore(pg.PoolHandle())
	} else {
		logger.Warn("running on the in-memory store; data is lost on restart")
		store = memory.New()
	}

	var webhookEvents repository.WebhookEventRepository
	if redis.Configured() {
		webhookEvents = repository.NewRedisWebhookEventRepository(redis.Client, cfg.Billing.EventKeyPrefix, cfg.Billing.EventTTL())
	} else {
		webhookEvents = repository.NewMemoryWebhookEventRepository(cfg.Billing.EventTTL())
	}
	if cfg.Billing.WebhookSecret == "" {
		logger.Warn("BILLING_WEBHOOK_SECRET not set; every billing webhook will be rejected")
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(ctx, dispatcher, service.NewNotificationService(logger, cfg.Notification), logger)

	gatekeeper := service.NewGatekeeperService(store, logger)
	transitions := service.NewTransitionService(service.TransitionDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	assessments := service.NewAssessmentService(service.AssessmentDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	questions := service.NewQuestionService(store, logger)
	billing := service.NewBillingWebhookService(service.BillingWebhookDependencies{
		Secret:      cfg.Billing.WebhookSecret,
		Events:      webhookEvents,
		Transitions: transitions,
		Logger:      logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, store.Repositories().Profiles)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Status:          handlers.NewStatusHandler(gatekeeper),
		Assessments:     handlers.NewAssessmentHandler(assessments),
		Questions:       handlers.NewQuestionHandler(questions),
		Admin:           handlers.NewAdminHandler(transitions),
		Operator:        handlers.NewOperatorHandler(transitions),
		Webhooks:        handlers.NewWebhookHandler(billing, cfg.Billing.SignatureHeader),
		AuthMiddleware:  authMiddleware,
		OperatorKeyHash: cfg.Auth.OperatorKeyHash,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
