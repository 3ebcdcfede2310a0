// Package api serves the HTTP surface: health, prometheus metrics and the
// read-only administrator JSON API.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/familybudget/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Server provides the HTTP API.
type Server struct {
	svc    *service.Service
	logger *logrus.Logger
	token  string
	ping   func(ctx context.Context) error
	engine *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithAdminToken enables /api/admin behind "Authorization: Bearer token".
// The admin API is not served without a token.
func WithAdminToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithHealthCheck makes /health report ping failures, typically of the database.
func WithHealthCheck(ping func(ctx context.Context) error) Option {
	return func(s *Server) { s.ping = ping }
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger, opts ...Option) *Server {
	s := &Server{svc: svc, logger: logger}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.logRequests())
	s.engine.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Infof("HTTP server listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if s.token == "" {
		return
	}
	admin := s.engine.Group("/api/admin", s.requireToken)
	admin.GET("/stats", s.handleGlobalStats)
	admin.GET("/families", s.handleFamilies)
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("HTTP request")
	}
}

func (s *Server) requireToken(c *gin.Context) {
	got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.ping != nil {
		if err := s.ping(c.Request.Context()); err != nil {
			s.logger.WithError(err).Warn("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleGlobalStats(c *gin.Context) {
	stats, err := s.svc.GlobalStats(c.Request.Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to get global stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get global stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleFamilies(c *gin.Context) {
	page := 0
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a non-negative integer"})
			return
		}
		page = n
	}

	result, err := s.svc.FamiliesPage(c.Request.Context(), page)
	if err != nil {
		s.logger.WithError(err).Error("failed to list families")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list families"})
		return
	}
	c.JSON(http.StatusOK, result)
}
