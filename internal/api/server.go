// Package api implements the HTTP surface of the platform's REST API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/paxoscn/avalon-sub003/internal/services"
	"github.com/paxoscn/avalon-sub003/pkg/observability"
)

// Config holds the API server configuration
type Config struct {
	ListenAddress string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	EnableCORS    bool
	Auth          AuthConfig
	RateLimit     RateLimitConfig
}

// RateLimitConfig configures the request limiter
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// DefaultConfig returns a server configuration with sane defaults
func DefaultConfig() Config {
	return Config{
		ListenAddress: ":8080",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   90 * time.Second,
		RateLimit: RateLimitConfig{
			Enabled: false,
			RPS:     100,
			Burst:   300,
		},
	}
}

// Server is the REST API server
type Server struct {
	router  *gin.Engine
	server  *http.Server
	config  Config
	logger  observability.Logger
	metrics observability.MetricsClient
}

// NewServer creates and wires the API server
func NewServer(
	cfg Config,
	toolService services.ToolsServiceInterface,
	logger observability.Logger,
	metrics observability.MetricsClient,
) *Server {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoopMetricsClient()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger.WithPrefix("http")))

	if cfg.EnableCORS {
		router.Use(CORSMiddleware())
	}
	if cfg.RateLimit.Enabled {
		router.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	// Health endpoint stays outside authentication
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware(cfg.Auth, logger.WithPrefix("auth")))

	toolsAPI := NewToolsAPI(toolService, logger.WithPrefix("tools-api"), metrics)
	toolsAPI.RegisterRoutes(v1)

	return &Server{
		router: router,
		server: &http.Server{
			Addr:         cfg.ListenAddress,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		config:  cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Router exposes the gin engine, primarily for tests
func (s *Server) Router() *gin.Engine { return s.router }

// Start begins serving requests and blocks until shutdown
func (s *Server) Start() error {
	s.logger.Info("Starting API server", map[string]interface{}{
		"address": s.config.ListenAddress,
	})
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server", nil)
	return s.server.Shutdown(ctx)
}
