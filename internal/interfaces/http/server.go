// Package http provides the HTTP server adapter for the application
// layer. It is a thin layer translating requests to service calls; all
// workflow rules live in the services.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jetprint/print-workflow/internal/application/service"
	"github.com/jetprint/print-workflow/internal/auth"
	"github.com/jetprint/print-workflow/internal/infrastructure/notification"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string
	Port        int
	ReadTimeout time.Duration
	IdleTimeout time.Duration
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handler    *Handler
	tokens     *auth.TokenManager
	logger     *zap.Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	orderService service.OrderService,
	workflowService service.WorkflowService,
	userService service.UserService,
	notificationService service.NotificationService,
	hub *notification.Hub,
	tokens *auth.TokenManager,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	server := &Server{
		config: config,
		router: router,
		handler: &Handler{
			orders:        orderService,
			workflow:      workflowService,
			users:         userService,
			notifications: notificationService,
			hub:           hub,
			tokens:        tokens,
			logger:        logger,
		},
		tokens: tokens,
		logger: logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	// No WriteTimeout: /api/events holds its response open for the
	// lifetime of the subscription, and a server-wide write deadline
	// would sever every stream at the timeout.
	server.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:     router,
		ReadTimeout: config.ReadTimeout,
		IdleTimeout: config.IdleTimeout,
	}
	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) setupRoutes() {
	h := s.handler

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")
	api.POST("/auth/login", h.Login)

	authed := api.Group("")
	authed.Use(AuthRequired(s.tokens))
	{
		authed.GET("/orders", h.ListAvailableOrders)
		authed.POST("/orders", h.CreateOrder)
		authed.GET("/orders/:id", h.GetOrder)
		authed.GET("/orders/:id/confirmation", h.OrderConfirmation)
		authed.PATCH("/orders/:id/notes", h.UpdateOrderNotes)
		authed.PATCH("/orders/:id/shipping", h.UpdateShippingPrice)

		authed.POST("/stage-claims", h.ClaimOrder)
		authed.PATCH("/stage-claims/:id/advance", h.AdvanceClaim)
		authed.GET("/stage-claims/my/active", h.MyActiveClaims)
		authed.GET("/stage-claims/my/completed", h.MyCompletedClaims)
		authed.GET("/stage-claims/my/all", h.MyAllClaims)

		authed.GET("/branches", h.ListBranches)
		authed.GET("/notifications", h.MyNotifications)
		authed.GET("/events", h.StreamEvents)
	}

	admin := authed.Group("/admin")
	admin.Use(AdminRequired())
	{
		admin.POST("/reassign-claim", h.ReassignClaim)
		admin.PATCH("/orders/:id/stage", h.OverrideOrderStage)
		admin.GET("/audit-logs", h.AuditLogs)
		admin.GET("/stages", h.ListStages)
		admin.PUT("/stages/:name/users", h.SetStageUsers)
		admin.GET("/users", h.ListUsers)
		admin.POST("/users", h.CreateUser)
		admin.PATCH("/users/:id/role", h.UpdateUserRole)
		admin.DELETE("/users/:id", h.DeleteUser)
		admin.POST("/branches", h.CreateBranch)
	}
}

// Start begins serving HTTP requests. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}
