package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/harborlabs/harbor-backoffice/internal/api/middleware"
	"github.com/harborlabs/harbor-backoffice/internal/config"
	"github.com/harborlabs/harbor-backoffice/internal/outbox"
	"github.com/harborlabs/harbor-backoffice/internal/usecase/orders"
	"github.com/harborlabs/harbor-backoffice/internal/usecase/returnrequests"
)

type Router struct {
	engine      *gin.Engine
	server      *http.Server
	cfg         *config.Config
	orderSvc    *orders.Service
	returnSvc   *returnrequests.Service
	outboxStore *outbox.Store
	logger      *zap.Logger
}

func NewRouter(
	cfg *config.Config,
	orderSvc *orders.Service,
	returnSvc *returnrequests.Service,
	outboxStore *outbox.Store,
	logger *zap.Logger,
) *Router {
	// Disable GIN default logger
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Add recovery middleware
	r.Use(gin.Recovery())

	// Add custom middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.Logger(logger))

	api := &Router{
		engine:      r,
		cfg:         cfg,
		orderSvc:    orderSvc,
		returnSvc:   returnSvc,
		outboxStore: outboxStore,
		logger:      logger,
	}

	api.RegisterRoutes()
	return api
}

func (r *Router) RegisterRoutes() {
	// Simple health check
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus metrics endpoint
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api")
	{
		orderGroup := api.Group("/orders")
		{
			orderGroup.POST("", r.CreateOrder)
			orderGroup.POST("/:id/confirm", r.ConfirmOrder)
			orderGroup.POST("/:id/ship", r.ShipOrder)
			orderGroup.POST("/:id/deliver", r.DeliverOrder)
			orderGroup.POST("/:id/cancel", r.CancelOrder)
			orderGroup.DELETE("/:id", r.DeleteOrder)
		}

		returnGroup := api.Group("/returns")
		{
			returnGroup.POST("", r.CreateReturnRequest)
			returnGroup.POST("/:id/approve", r.ApproveReturnRequest)
			returnGroup.POST("/:id/reject", r.RejectReturnRequest)
			returnGroup.POST("/:id/complete", r.CompleteReturnRequest)
			returnGroup.DELETE("/:id", r.DeleteReturnRequest)
		}
	}

	// Admin Routes (Protected by ADMIN_API_TOKEN)
	admin := r.engine.Group("/admin")
	admin.Use(r.adminAuth())
	{
		admin.GET("/outbox/dead-letters", r.ListDeadLetters)
		admin.POST("/outbox/replay", r.ReplayDeadLetters)
	}
}

func (r *Router) Run() error {
	r.server = &http.Server{
		Addr:         ":" + r.cfg.Port,
		Handler:      r.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return r.server.ListenAndServe()
}

func (r *Router) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := strings.TrimSpace(r.cfg.AdminAPIToken)
		if expected == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin_token_not_configured"})
			return
		}

		provided := strings.TrimSpace(c.GetHeader("X-Admin-Token"))
		if provided == "" {
			authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
			if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				provided = strings.TrimSpace(authHeader[7:])
			}
		}

		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// Shutdown gracefully shuts down the HTTP server
func (r *Router) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}
