// Package httpapi provides the HTTP API for recalld.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/knowledge"
	"github.com/fyrsmithlabs/recalld/internal/search"
	"github.com/fyrsmithlabs/recalld/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes capture, search and stats over HTTP.
type Server struct {
	echo     *echo.Echo
	sessions *session.Service
	searcher *search.Service
	metrics  *Metrics
	logger   *zap.Logger
	config   config.HTTPConfig
}

// NewServer creates the HTTP server and registers routes.
func NewServer(sessions *session.Service, searcher *search.Service, cfg config.HTTPConfig, logger *zap.Logger) (*Server, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session service cannot be nil")
	}
	if searcher == nil {
		return nil, fmt.Errorf("search service cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:7133"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := NewMetrics()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(metrics.middleware)
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		sessions: sessions,
		searcher: searcher,
		metrics:  metrics,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/v1")
	v1.GET("/search", s.handleSearch)
	v1.POST("/capture", s.handleCapture)
	v1.GET("/stats", s.handleStats)
	v1.POST("/tasks/:id/complete", s.handleCompleteTask)
	v1.POST("/tasks/:id/cancel", s.handleCancelTask)
	v1.DELETE("/sessions/:id", s.handlePrune)
}

// Start runs the server until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.config.Addr))
	if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// CaptureRequest is the request body for POST /v1/capture.
type CaptureRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// SearchResponse is the response body for GET /v1/search.
type SearchResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleSearch serves GET /v1/search?q=...&k=...&type=...
func (s *Server) handleSearch(c echo.Context) error {
	query := c.QueryParam("q")
	typeFilter := c.QueryParam("type")

	k := 0
	if raw := c.QueryParam("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "k must be an integer")
		}
		k = parsed
	}

	results, err := s.searcher.Search(c.Request().Context(), query, k, typeFilter)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrEmptyQuery):
			return echo.NewHTTPError(http.StatusBadRequest, "q parameter is required")
		case errors.Is(err, knowledge.ErrUnknownType):
			return echo.NewHTTPError(http.StatusBadRequest, "unknown type filter")
		default:
			s.logger.Error("search failed", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
		}
	}

	s.metrics.searchResults.Add(float64(len(results)))
	if results == nil {
		results = []search.Result{}
	}
	return c.JSON(http.StatusOK, SearchResponse{Query: query, Results: results})
}

// handleCapture runs one capture pass for a session.
func (s *Server) handleCapture(c echo.Context) error {
	var req CaptureRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid capture request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id field is required")
	}

	result, err := s.sessions.Capture(c.Request().Context(), req.SessionID, req.Text)
	if err != nil {
		s.logger.Error("capture failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "capture failed")
	}

	s.metrics.captureAccepted.Add(float64(result.Accepted))
	return c.JSON(http.StatusOK, result)
}

// handleStats reports store and index counts.
func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.sessions.Stats(c.Request().Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "stats failed")
	}
	return c.JSON(http.StatusOK, stats)
}

// TaskRequest is the request body for task transitions.
type TaskRequest struct {
	SessionID string `json:"session_id"`
}

// StatusResponse acknowledges a state change.
type StatusResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleCompleteTask(c echo.Context) error {
	var req TaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := s.sessions.CompleteTask(c.Request().Context(), c.Param("id"), req.SessionID)
	if err != nil {
		return taskError(err)
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "completed"})
}

func (s *Server) handleCancelTask(c echo.Context) error {
	if err := s.sessions.CancelTask(c.Request().Context(), c.Param("id")); err != nil {
		return taskError(err)
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "cancelled"})
}

func taskError(err error) error {
	switch {
	case errors.Is(err, knowledge.ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	case errors.Is(err, knowledge.ErrUnknownType):
		return echo.NewHTTPError(http.StatusBadRequest, "record is not a task")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "task update failed")
	}
}

// handlePrune removes session metadata. Knowledge records captured from the
// session stay searchable.
func (s *Server) handlePrune(c echo.Context) error {
	removed, err := s.sessions.Prune(c.Request().Context(), c.Param("id"))
	if err != nil {
		s.logger.Error("prune failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "prune failed")
	}
	if !removed {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "pruned"})
}
