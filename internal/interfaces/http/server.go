// internal/interfaces/http/server.go
package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/interfaces/http/middleware"
	"github.com/your-org/cinema-backend/internal/interfaces/http/routes"
)

// HealthChecker is a dependency the readiness probe pings
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RateCounter backs the rate limiter and health checks; the redis client implements it
type RateCounter interface {
	middleware.Counter
	HealthChecker
}

// Options carries everything the server needs besides the config
type Options struct {
	Logger      *logrus.Logger
	Database    HealthChecker
	Redis       RateCounter
	Services    *routes.Services
	UploadsRoot string // served under /uploads when set
}

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	opts       Options
	gin        *gin.Engine
	httpServer *http.Server
	startedAt  time.Time
}

// NewServer creates a new HTTP server instance with its routes registered
func NewServer(cfg *config.Config, opts Options) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:    cfg,
		opts:      opts,
		gin:       gin.New(),
		startedAt: time.Now(),
	}

	if len(cfg.Security.TrustedProxies) > 0 {
		if err := s.gin.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
			opts.Logger.WithError(err).Warn("Invalid trusted proxies")
		}
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.gin,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	log.Printf("🚀 HTTP Server starting on port %s", s.config.Server.Port)
	log.Printf("🌐 API Base URL: %s", s.config.URL("/api/v1"))
	log.Printf("📊 Health Check: http://localhost:%s/health", s.config.Server.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	log.Println("🛑 Shutting down HTTP server...")

	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	log.Println("✅ HTTP server stopped gracefully")
	return nil
}

// setupMiddleware configures all middleware for the server
func (s *Server) setupMiddleware() {
	s.gin.Use(gin.Recovery())
	s.gin.Use(middleware.RequestID())
	s.gin.Use(middleware.Logger(s.opts.Logger))
	s.gin.Use(middleware.CORS(s.config))
	s.gin.Use(middleware.SecurityHeaders(s.config.IsProduction()))
	s.gin.Use(middleware.RateLimit(s.config.Security.RateLimitPerMinute, s.opts.Redis, s.opts.Logger))
	s.gin.Use(middleware.RequestSizeLimit(s.config.Server.MaxRequestBytes))
	s.gin.Use(middleware.Timeout(s.config.Server.RequestTimeout))
}

// setupRoutes configures all routes for the server
func (s *Server) setupRoutes() {
	s.gin.GET("/health", s.healthCheck)
	s.gin.GET("/ready", s.readinessCheck)

	if s.opts.UploadsRoot != "" {
		s.gin.Static("/uploads", s.opts.UploadsRoot)
	}

	apiV1 := s.gin.Group("/api/v1")
	routes.SetupRoutes(apiV1, s.config, s.opts.Logger, s.opts.Services)

	if s.config.IsDevelopment() {
		s.gin.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"message":     s.config.App.Name,
				"version":     s.config.App.Version,
				"environment": s.config.App.Environment,
				"health":      "/health",
				"endpoints": gin.H{
					"accounts": "/api/v1/accounts",
					"movies":   "/api/v1/movies",
					"cart":     "/api/v1/cart",
					"orders":   "/api/v1/orders",
					"payments": "/api/v1/payments",
					"admin":    "/api/v1/admin",
				},
			})
		})
	}
}

// healthCheck reports whether the process is up
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"version":     s.config.App.Version,
		"environment": s.config.App.Environment,
	})
}

// readinessCheck pings the database and Redis
func (s *Server) readinessCheck(c *gin.Context) {
	ctx := c.Request.Context()
	checks := gin.H{"database": "ok", "redis": "ok"}
	status := http.StatusOK

	if err := s.opts.Database.Health(ctx); err != nil {
		s.opts.Logger.WithError(err).Error("Database health check failed")
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if err := s.opts.Redis.Health(ctx); err != nil {
		s.opts.Logger.WithError(err).Error("Redis health check failed")
		checks["redis"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	c.JSON(status, gin.H{
		"status":    state,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}
