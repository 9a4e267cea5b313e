// internal/app/router.go
package app

import (
	billingHandler "rebill-service/internal/handlers/billing"
	planHandler "rebill-service/internal/handlers/plan"
	subscriptionHandler "rebill-service/internal/handlers/subscription"
	userHandler "rebill-service/internal/handlers/user"
	wsHandler "rebill-service/internal/handlers/ws"
	"rebill-service/internal/middleware"
	"rebill-service/internal/observability"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	UserHandler         *userHandler.UserHandler
	PlanHandler         *planHandler.PlanHandler
	SubscriptionHandler *subscriptionHandler.SubscriptionHandler
	BillingHandler      *billingHandler.BillingHandler
	WSHandler           *wsHandler.WebSocketHandler
	AuthMiddleware      *middleware.AuthMiddleware
	Metrics             *observability.Metrics
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.CORSMiddleware())

	// ==================== Health & Observability ====================
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"service": "rebill-service", "status": "ok"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))

	// ==================== WebSocket ====================
	r.GET("/ws/billing", h.WSHandler.HandleConnection)

	api := r.Group("/api/v1")

	// ==================== Users ====================
	users := api.Group("/users")
	{
		users.GET("", h.UserHandler.ListUsers)
		users.GET("/:id", h.UserHandler.GetUser)
		users.POST("", h.AuthMiddleware.Auth(), h.UserHandler.CreateUser)
	}

	// ==================== Plans ====================
	plans := api.Group("/plans")
	{
		plans.GET("", h.PlanHandler.ListPlans)
		plans.GET("/:id", h.PlanHandler.GetPlan)
		plans.POST("", h.AuthMiddleware.Auth(), h.PlanHandler.CreatePlan)
	}

	// ==================== Subscriptions ====================
	subscriptions := api.Group("/subscriptions")
	{
		subscriptions.GET("", h.SubscriptionHandler.ListSubscriptions)
		subscriptions.GET("/:id", h.SubscriptionHandler.GetSubscription)

		protected := subscriptions.Group("")
		protected.Use(h.AuthMiddleware.Auth())
		{
			protected.POST("", h.SubscriptionHandler.CreateSubscription)
			protected.POST("/:id/cancel", h.SubscriptionHandler.CancelSubscription)
		}
	}

	// ==================== Billing ====================
	billing := api.Group("/billing")
	billing.Use(h.AuthMiddleware.Auth())
	{
		billing.POST("/run", h.BillingHandler.RunBilling)
	}
}
