// Package api exposes the screening engine and its stores over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tarang-screening-server/internal/domain"
	"github.com/tarang-screening-server/internal/feedback"
	"github.com/tarang-screening-server/internal/middleware"
	"github.com/tarang-screening-server/internal/service"
)

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// Dependencies are the services the HTTP layer dispatches to.
type Dependencies struct {
	Screening *service.ScreeningService
	Outcomes  *service.OutcomeService
	Reviews   feedback.Store
	Checks    map[string]HealthCheck
	Logger    *logrus.Logger
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	deps          Dependencies
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
	version       string
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger(deps.Logger))
	router.Use(corsMiddleware())
	if cfg.Server.WriteTimeout > 0 {
		router.Use(middleware.RequestTimeout(cfg.Server.WriteTimeout))
	}

	server := &Server{
		configManager: configManager,
		deps:          deps,
		logger:        deps.Logger,
		router:        router,
		version:       cfg.MCP.ServerVersion,
	}

	server.setupRoutes(cfg.Server)

	return server
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(cfg domain.ServerConfig) {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.RequireTenant())
	v1.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateBurst))
	{
		v1.POST("/screenings", s.handleScreen)
		v1.GET("/screenings/:id", s.handleGetScreening)
		v1.GET("/screenings/:id/fhir", s.handleFHIR)
		v1.POST("/screenings/:id/review", s.handleSaveReview)
		v1.GET("/screenings/:id/review", s.handleGetReview)

		v1.GET("/patients/:id/screenings", s.handleListScreenings)
		v1.GET("/patients/:id/trajectory", s.handleTrajectory)
		v1.GET("/patients/:id/trajectory/chart", s.handleTrajectoryChart)
		v1.GET("/patients/:id/dashboard", s.handleDashboard)
		v1.POST("/patients/:id/progress", s.handleRecordProgress)
		v1.GET("/patients/:id/efficacy", s.handleEfficacy)

		v1.GET("/reviews", s.handleListReviews)
		v1.GET("/reviews/agreement", s.handleAgreement)

		v1.POST("/engine/fuse", s.handleFuse)
		v1.POST("/engine/trend", s.handleTrend)
		v1.POST("/engine/efficacy", s.handleAnalyzeEfficacy)
	}
}

// handleHealth reports liveness and the state of each backing dependency.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}
	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":    state,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
		"version":   s.version,
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Tenant-ID, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Correlation-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
