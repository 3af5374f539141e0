package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-sla/internal/api/http"
	"github.com/spec-kit/helpdesk-sla/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-sla/internal/auth"
	"github.com/spec-kit/helpdesk-sla/internal/automation"
	"github.com/spec-kit/helpdesk-sla/internal/clock"
	"github.com/spec-kit/helpdesk-sla/internal/config"
	"github.com/spec-kit/helpdesk-sla/internal/events"
	"github.com/spec-kit/helpdesk-sla/internal/notify"
	"github.com/spec-kit/helpdesk-sla/internal/observability"
	"github.com/spec-kit/helpdesk-sla/internal/persistence"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	"github.com/spec-kit/helpdesk-sla/internal/service"
	"github.com/spec-kit/helpdesk-sla/internal/sla"
	"github.com/spec-kit/helpdesk-sla/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	extraConditions, err := parseNoResponseConditions(cfg.SLA.NoResponseConditions)
	if err != nil {
		logger.Fatal("invalid NO_RESPONSE_CONDITIONS", zap.Error(err))
	}

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	sectorRepo := repository.NewSectorRepository(pool)
	slaConfigRepo := repository.NewSLAConfigRepository(pool)
	calendarRepo := repository.NewCalendarRepository(pool)
	pauseRepo := repository.NewSLAPauseRepository(pool)
	escalationRepo := repository.NewEscalationRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)

	systemClock := clock.System{}
	metrics := observability.NewMetrics("helpdesk_sla")
	dispatcher := events.NewInMemoryDispatcher(logger)
	deduper := notify.NewRedisDeduper(redis.Client, "sla:dedup")

	notificationService := service.NewNotificationService(
		dispatcher,
		notificationRepo,
		notify.NewRedisPusher(redis.Client, cfg.Notification.ChannelPrefix),
		systemClock,
		logger,
	)
	worker.StartNotificationWorker(notificationService, logger)

	slaService := service.NewSLAService(service.SLADependencies{
		TicketRepo:     ticketRepo,
		SectorRepo:     sectorRepo,
		CalendarRepo:   calendarRepo,
		PauseRepo:      pauseRepo,
		EscalationRepo: escalationRepo,
		HistoryRepo:    historyRepo,
		Resolver:       sla.NewPolicyResolver(slaConfigRepo, sla.DefaultPolicies(cfg.SLA.DefaultHours)),
		Evaluator:      sla.NewEvaluator(cfg.SLA.WarningPercent),
		Clock:          systemClock,
		Location:       cfg.SLA.Location(),
		Logger:         logger,
	})
	escalationService := service.NewEscalationService(service.EscalationDependencies{
		TicketRepo:      ticketRepo,
		PauseRepo:       pauseRepo,
		EscalationRepo:  escalationRepo,
		HistoryRepo:     historyRepo,
		SLA:             slaService,
		Dispatcher:      dispatcher,
		Deduper:         deduper,
		Metrics:         metrics,
		Clock:           systemClock,
		Logger:          logger,
		BatchSize:       cfg.SLA.SweepBatchSize,
		MaxLevel:        cfg.SLA.MaxEscalationLevel,
		WarningDedupTTL: cfg.SLA.WarningDedupTTL,
	})
	automationService := service.NewAutomationService(service.AutomationDependencies{
		TicketRepo:      ticketRepo,
		Dispatcher:      dispatcher,
		Deduper:         deduper,
		Clock:           systemClock,
		Logger:          logger,
		ExtraConditions: extraConditions,
		BatchSize:       cfg.SLA.SweepBatchSize,
		DedupTTL:        cfg.SLA.NoResponseDedupTTL,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, 0)
	authMiddleware := auth.NewAuthMiddleware(tokens, cfg.Auth.CronSecretHash)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		SLA:            handlers.NewSLAHandler(slaService),
		Triggers:       handlers.NewTriggerHandler(escalationService, automationService, cfg.SLA.NoResponseDays, logger),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	sweeperDone := worker.StartEscalationWorker(ctx, escalationService, cfg.SLA.SweepInterval, logger)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	<-sweeperDone
	_ = app.Shutdown()
}

func parseNoResponseConditions(raw string) ([]automation.Condition, error) {
	if raw == "" {
		return nil, nil
	}
	conds, err := automation.ParseConditions([]byte(raw))
	if err != nil {
		return nil, err
	}
	return conds, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
