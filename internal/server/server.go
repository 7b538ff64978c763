// Package server exposes a registry over HTTP.
//
// Routes:
//   - GET /health
//   - GET /units/* serves unit files from the units directory
//   - GET /api/v1/namespaces/:identifier includes a unit and returns its value
//   - GET /metrics Prometheus metrics
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/nsreg/internal/registry"
)

// Config configures the HTTP service.
type Config struct {
	// Addr is the listen address.
	Addr string

	// UnitsDir is served under /units. Empty disables the route.
	UnitsDir string
}

// Server is the HTTP front of one registry.
type Server struct {
	echo     *echo.Echo
	registry *registry.Registry
	gatherer prometheus.Gatherer
	config   Config
}

// New creates a server for reg. gatherer backs /metrics; nil uses the
// default Prometheus registry.
func New(reg *registry.Registry, gatherer prometheus.Gatherer, cfg Config) (*Server, error) {
	if reg == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger)

	s := &Server{
		echo:     e,
		registry: reg,
		gatherer: gatherer,
		config:   cfg,
	}
	s.registerRoutes()
	return s, nil
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		slog.Info("http request",
			"method", c.Request().Method,
			"uri", c.Request().RequestURI,
			"status", c.Response().Status,
			"duration", time.Since(start),
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		)
		return err
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	if s.config.UnitsDir != "" {
		s.echo.Static("/units", s.config.UnitsDir)
	}

	v1 := s.echo.Group("/api/v1")
	v1.GET("/namespaces/:identifier", s.handleNamespace)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// NamespaceResponse is the response body for GET /api/v1/namespaces/:identifier.
type NamespaceResponse struct {
	Identifier string `json:"identifier"`
	URI        string `json:"uri"`
	Value      any    `json:"value"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleNamespace(c echo.Context) error {
	id := c.Param("identifier")

	ok, err := s.registry.Include(c.Request().Context(), id)
	switch {
	case registry.IsInvalidIdentifier(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case registry.IsTransportUnavailable(err):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case err != nil:
		slog.Warn("namespace include failed", "identifier", id, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "unit could not be evaluated")
	case !ok:
		return echo.NewHTTPError(http.StatusNotFound, "unit "+id+" could not be loaded")
	}

	value, found := s.registry.Get(id)
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "namespace "+id+" is not bound")
	}
	return c.JSON(http.StatusOK, NamespaceResponse{
		Identifier: id,
		URI:        s.registry.MapIdentifierToURI(id),
		Value:      value,
	})
}

// ServeHTTP lets the server be mounted or exercised without listening.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	slog.Info("starting http server", "addr", s.config.Addr)
	if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
