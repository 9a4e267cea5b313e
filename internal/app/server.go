// internal/app/server.go
package app

import (
	"context"
	"fmt"

	"rebill-service/internal/config"
	"rebill-service/internal/db"
	billingHandler "rebill-service/internal/handlers/billing"
	planHandler "rebill-service/internal/handlers/plan"
	subscriptionHandler "rebill-service/internal/handlers/subscription"
	userHandler "rebill-service/internal/handlers/user"
	wsHandler "rebill-service/internal/handlers/ws"
	"rebill-service/internal/middleware"
	"rebill-service/internal/observability"
	"rebill-service/internal/pkg/runlock"
	"rebill-service/internal/repository/postgres"
	"rebill-service/internal/scheduler"
	"rebill-service/internal/service/billing"
	"rebill-service/internal/service/payment"
	plansvc "rebill-service/internal/service/plan"
	subscriptionsvc "rebill-service/internal/service/subscription"
	usersvc "rebill-service/internal/service/user"
	"rebill-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	gin.SetMode(gin.ReleaseMode)
	return &Server{cfg: cfg, engine: gin.New()}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := db.NewPostgresPool(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redisClient.Close()

	// ----- Repositories -----
	userRepo := postgres.NewUserRepository(pool)
	planRepo := postgres.NewPlanRepository(pool)
	subRepo := postgres.NewSubscriptionRepository(pool)
	ledgerRepo := postgres.NewLedgerRepository(pool)

	// ----- Observability & run feed -----
	metrics := observability.NewMetrics()
	hub := websocket.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	// ----- Billing pipeline -----
	gateway := payment.NewSimulatedGateway(
		s.cfg.Gateway.SuccessRate,
		s.cfg.Gateway.MinLatency,
		s.cfg.Gateway.MaxLatency,
		logger,
	)
	lock := runlock.New(redisClient, "", 0)
	processor := billing.NewProcessor(
		billing.Config{
			BatchSize:           s.cfg.Billing.BatchSize,
			Concurrency:         s.cfg.Billing.Concurrency,
			ChargeTimeout:       s.cfg.Billing.ChargeTimeout,
			RunTimeout:          s.cfg.Billing.RunTimeout,
			EscalationThreshold: s.cfg.Billing.EscalationThreshold,
		},
		subRepo, planRepo, ledgerRepo, gateway, logger,
		billing.WithRunLock(lock),
		billing.WithEvents(hub),
		billing.WithMetrics(metrics),
	)

	// ----- Services -----
	userService := usersvc.NewUserService(userRepo, logger)
	planService := plansvc.NewPlanService(planRepo, logger)
	subscriptionService := subscriptionsvc.NewSubscriptionService(
		subRepo, planRepo, userRepo, ledgerRepo, processor, logger,
	)

	// ----- Scheduler -----
	if spec := s.cfg.Billing.CronSpec; spec != "" {
		sched, err := scheduler.New(spec, processor, logger)
		if err != nil {
			return fmt.Errorf("invalid billing cron spec %q: %w", spec, err)
		}
		sched.Start()
		defer sched.Stop()
		logger.Info("billing scheduler started", zap.String("cron", spec))
	}

	// ----- Handlers & routes -----
	handlers := &Handlers{
		UserHandler:         userHandler.NewUserHandler(userService),
		PlanHandler:         planHandler.NewPlanHandler(planService),
		SubscriptionHandler: subscriptionHandler.NewSubscriptionHandler(subscriptionService),
		BillingHandler:      billingHandler.NewBillingHandler(processor),
		WSHandler:           wsHandler.NewWebSocketHandler(hub, logger),
		AuthMiddleware:      middleware.NewAuthMiddleware(s.cfg.JWTSecret),
		Metrics:             metrics,
	}
	SetupRouter(s.engine, logger, handlers)

	logger.Info("server listening", zap.String("addr", s.cfg.HTTPAddr))
	return s.engine.Run(s.cfg.HTTPAddr)
}
