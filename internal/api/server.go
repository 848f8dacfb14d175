// Package api serves the aggregation engine over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bakkerme/api-aggregator/internal/aggregator"
	"github.com/bakkerme/api-aggregator/internal/core"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	serviceName = "api-aggregator"
	// defaultDevToFilter is the tag used by /api/devto when none is given.
	defaultDevToFilter = "dotnet"
)

// Aggregator is the engine surface the server needs.
type Aggregator interface {
	Fetch(ctx context.Context, q aggregator.Query) []core.Item
	Sources() []core.Source
}

type Config struct {
	Engine Aggregator
	// DevTo backs the uncached /api/devto passthrough. Nil disables it.
	DevTo    aggregator.Provider
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	Version  string
}

type Server struct {
	engine  Aggregator
	devTo   aggregator.Provider
	logger  *slog.Logger
	version string
	echo    *echo.Echo
}

func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(logger))
	e.Use(contextLogger(logger))

	server := &Server{
		engine:  cfg.Engine,
		devTo:   cfg.DevTo,
		logger:  logger,
		version: cfg.Version,
		echo:    e,
	}
	server.setupRoutes(cfg.Gatherer)
	return server
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	api := s.echo.Group("/api")
	api.GET("/aggregated", s.handleAggregated)
	api.GET("/devto", s.handleDevTo)
	api.GET("/sources", s.handleSources)
	api.GET("/v1/health", s.handleHealth)

	if gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// ServeHTTP lets the server be mounted or exercised without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleAggregated(c echo.Context) error {
	q, err := parseQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items := s.engine.Fetch(c.Request().Context(), q)
	return c.JSON(http.StatusOK, items)
}

func (s *Server) handleDevTo(c echo.Context) error {
	if s.devTo == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Dev.to provider is not configured")
	}
	filter := strings.TrimSpace(c.QueryParam("filter"))
	if filter == "" {
		filter = defaultDevToFilter
	}

	ctx := c.Request().Context()
	items, err := s.devTo.Fetch(ctx, filter)
	if err != nil {
		core.LoggerFromContext(ctx, s.logger).Error("devto passthrough failed", "filter", filter, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "Dev.to request failed")
	}
	if items == nil {
		items = []core.Item{}
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) handleSources(c echo.Context) error {
	sources := s.engine.Sources()
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.String()
	}
	return c.JSON(http.StatusOK, names)
}

func (s *Server) handleHealth(c echo.Context) error {
	body := map[string]any{
		"status":  "healthy",
		"service": serviceName,
	}
	if s.version != "" {
		body["version"] = s.version
	}
	return c.JSON(http.StatusOK, body)
}

// parseQuery binds searchTerm, dateOrder and dataSources. dataSources may be
// repeated and each value may hold a comma-separated list.
func parseQuery(c echo.Context) (aggregator.Query, error) {
	order, err := core.ParseSortOrder(c.QueryParam("dateOrder"))
	if err != nil {
		return aggregator.Query{}, err
	}

	var sources []core.Source
	for _, raw := range c.QueryParams()["dataSources"] {
		for _, name := range strings.Split(raw, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			src, err := core.ParseSource(name)
			if err != nil {
				return aggregator.Query{}, err
			}
			sources = append(sources, src)
		}
	}

	return aggregator.Query{
		SearchTerm: c.QueryParam("searchTerm"),
		Order:      order,
		Sources:    sources,
	}, nil
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.Round(time.Microsecond),
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				logger.Error("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	})
}

// contextLogger stores a request-scoped logger and the request id in the
// request context.
func contextLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := core.WithRequestID(c.Request().Context(), id)
			ctx = core.WithLogger(ctx, logger.With("request_id", id))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
