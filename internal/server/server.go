package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/config"
)

// Server is the HTTP front of the application
type Server struct {
	cfg        config.ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	jwtSecret  string
	logger     *zap.Logger
}

// NewServer builds the router with all middleware and routes wired
func NewServer(cfg config.ServerConfig, jwtSecret string, services Services, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:       cfg,
		router:    gin.New(),
		handlers:  NewHandlers(services, logger),
		jwtSecret: jwtSecret,
		logger:    logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(corsMiddleware())
	s.router.Use(requestLogger(s.logger))
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)

	v1 := s.router.Group("/api/v1")

	public := v1.Group("/auth")
	{
		public.POST("/login", h.Login)
		public.POST("/refresh", h.Refresh)
		public.POST("/password-reset/request", h.RequestPasswordReset)
		public.POST("/password-reset/confirm", h.ConfirmPasswordReset)
	}

	authed := v1.Group("")
	authed.Use(authRequired(s.jwtSecret))
	{
		authed.GET("/auth/me", h.Me)
		authed.POST("/auth/logout", h.Logout)
		authed.POST("/auth/change-password", h.ChangePassword)

		authed.GET("/workflow/pending", h.PendingWork)

		authed.GET("/notifications", h.ListNotifications)
		authed.POST("/notifications/read-all", h.MarkAllNotificationsRead)
		authed.POST("/notifications/:id/read", h.MarkNotificationRead)

		authed.POST("/vendors/:id/risk-assessment", h.AssessVendorRisk)

		authed.GET("/documents/:id/download", h.DownloadDocument)
		authed.POST("/documents/:id/classify", h.ClassifyDocument)

		// Reports aggregate across vendors and approvals; the report
		// service itself has no caller checks, so the gate lives here.
		reports := authed.Group("/reports", requireOfficerTier())
		{
			reports.GET("/workflow-summary", h.WorkflowSummaryReport)
			reports.GET("/vendor-spend", h.VendorSpendReport)
			reports.GET("/pending-ageing", h.PendingAgeingReport)
			reports.GET("/export", h.ExportWorkbook)
		}

		// Generic entity routes; the segment is the collection name
		// from the registry (contracts, purchase_orders, ...).
		entities := authed.Group("/:entityType")
		{
			entities.GET("", h.ListEntities)
			entities.POST("", h.CreateEntity)
			entities.GET("/:id", h.GetEntity)
			entities.PUT("/:id", h.UpdateEntity)
			entities.DELETE("/:id", h.DeleteEntity)

			entities.GET("/:id/workflow", h.WorkflowStatus)
			entities.POST("/:id/workflow/forward-review", h.ForwardForReview)
			entities.POST("/:id/workflow/review-decision", h.ReviewerDecision)
			entities.POST("/:id/workflow/forward-hop", h.ForwardToHoP)
			entities.POST("/:id/workflow/hop-decision", h.HoPDecision)

			entities.POST("/:id/documents", h.UploadDocument)
			entities.GET("/:id/documents", h.ListDocuments)
		}
	}
}

// Start runs the server until ctx is cancelled or serving fails
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the listen address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}
