package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"trading-autopilot/internal/autopilot"
	"trading-autopilot/internal/circuit"
	"trading-autopilot/internal/events"
	"trading-autopilot/internal/lifecycle"
	"trading-autopilot/internal/positions"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Store is the persistence surface the API needs. *database.DB
// satisfies it.
type Store interface {
	LoadAutomationConfig(ctx context.Context) (*autopilot.AutomationConfig, error)
	SaveAutomationConfig(ctx context.Context, cfg *autopilot.AutomationConfig) error
	GetPosition(ctx context.Context, id string) (*positions.Position, error)
	ListPositionsByStatus(ctx context.Context, statuses ...positions.Status) ([]*positions.Position, error)
	ListRecentPositions(ctx context.Context, limit int) ([]*positions.Position, error)
	ListRunLog(ctx context.Context, limit int) ([]*autopilot.RunLogEntry, error)
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Host string
	Port int
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	store       Store
	engine      *autopilot.Engine
	lifecycle   *lifecycle.Manager
	eventBus    *events.EventBus
	breaker     *circuit.Breaker
	config      ServerConfig
	tickLimiter *RateLimiter
}

// NewServer creates a new API server
func NewServer(config ServerConfig, store Store, engine *autopilot.Engine, lc *lifecycle.Manager, eventBus *events.EventBus) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:8088"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	s := &Server{
		router:      router,
		store:       store,
		engine:      engine,
		lifecycle:   lc,
		eventBus:    eventBus,
		config:      config,
		tickLimiter: NewRateLimiter(30, time.Minute),
	}

	s.setupRoutes()
	return s
}

// SetCircuitBreaker exposes the loss-streak breaker over the status and
// reset endpoints.
func (s *Server) SetCircuitBreaker(b *circuit.Breaker) {
	s.breaker = b
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.POST("/autopilot/tick", s.rateLimited, s.handleRunTick)
		api.GET("/autopilot/config", s.handleGetConfig)
		api.PUT("/autopilot/config", s.handleUpdateConfig)
		api.POST("/autopilot/arm", s.handleArm)
		api.POST("/autopilot/kill", s.handleKillSwitch)
		api.GET("/autopilot/runs", s.handleListRuns)
		api.GET("/autopilot/breaker", s.handleBreakerStatus)
		api.POST("/autopilot/breaker/reset", s.handleBreakerReset)

		api.POST("/lifecycle/sweep", s.rateLimited, s.handleSweep)

		api.GET("/positions", s.handleListPositions)
		api.GET("/positions/:id", s.handleGetPosition)
	}
}

func (s *Server) rateLimited(c *gin.Context) {
	if !s.tickLimiter.Allow(c.FullPath()) {
		errorResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
		c.Abort()
		return
	}
	c.Next()
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting HTTP server on %s", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
