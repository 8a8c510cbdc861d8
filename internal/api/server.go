// Package api exposes the engine over HTTP: phenotype queries, gene lookups,
// module browsing, interactive sessions with a websocket stream, and
// clinician review records.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/domain"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/middleware"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/review"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/service"
)

// Server represents the HTTP server
type Server struct {
	config   *domain.Config
	engine   *service.Engine
	sessions *service.SessionManager
	reviews  review.Store
	logger   *logrus.Logger
	router   *gin.Engine
	server   *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(
	config *domain.Config,
	engine *service.Engine,
	sessions *service.SessionManager,
	reviews review.Store,
	logger *logrus.Logger,
) *Server {
	if logger == nil {
		logger = logrus.New()
	}

	// Set Gin mode based on environment
	if config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimit(config.Server.RateLimit, config.Server.RateBurst))

	server := &Server{
		config:   config,
		engine:   engine,
		sessions: sessions,
		reviews:  reviews,
		logger:   logger,
		router:   router,
	}

	server.setupRoutes()

	return server
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
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
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/query", s.handleQuery)
		v1.POST("/next-question", s.handleNextQuestion)
		v1.GET("/genes/:symbol", s.handleGetGene)
		v1.GET("/phenotypes", s.handleSearchPhenotypes)

		v1.GET("/modules", s.handleListModules)
		v1.GET("/modules/:id", s.handleGetModule)
		v1.GET("/modules/:id/predictions", s.handleModulePredictions)

		v1.POST("/sessions", s.handleCreateSession)
		v1.GET("/sessions/:id", s.handleGetSession)
		v1.DELETE("/sessions/:id", s.handleDeleteSession)
		v1.POST("/sessions/:id/answers", s.handleSessionAnswer)
		v1.POST("/sessions/:id/reset", s.handleSessionReset)
		v1.GET("/sessions/:id/result", s.handleSessionResult)
		v1.GET("/sessions/:id/next", s.handleSessionNext)
		v1.GET("/sessions/:id/stream", s.handleSessionStream)

		v1.PUT("/sessions/:id/review", s.handleSaveReview)
		v1.GET("/sessions/:id/review", s.handleGetReview)
		v1.POST("/reviews", s.handleCreateReview)
		v1.GET("/reviews", s.handleListReviews)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"sessions":  s.sessions.Count(),
	})
}

// respondError maps engine errors onto HTTP status codes. Data-integrity
// faults (internally-referenced ids missing from the tables) are terminal
// and reported as 500, unlike plain lookup misses which are 404.
func (s *Server) respondError(c *gin.Context, err error, lookupMiss bool) {
	if domain.IsNotFound(err) {
		status := http.StatusInternalServerError
		if lookupMiss {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error":          err.Error(),
			"correlation_id": c.GetString("correlation_id"),
		})
		return
	}
	s.logger.WithError(err).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":          "internal error",
		"correlation_id": c.GetString("correlation_id"),
	})
}
