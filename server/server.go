// Package server wires the HTTP API, metrics and health endpoints onto echo.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/gridiron/ai/metrics"
	"github.com/hrygo/gridiron/internal/profile"
	apiv1 "github.com/hrygo/gridiron/server/router/api/v1"
)

// Deps are the services the server exposes.
type Deps struct {
	Asker   apiv1.Asker
	History apiv1.HistoryReader // optional
	Metrics *metrics.PrometheusExporter
}

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	listener   net.Listener
}

// NewServer builds the echo instance and registers every route.
func NewServer(_ context.Context, p *profile.Profile, deps Deps) (*Server, error) {
	if deps.Asker == nil {
		return nil, errors.New("server requires an asker")
	}

	echoServer := echo.New()
	echoServer.Debug = p.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			slog.Error("panic recovered", "path", c.Path(), "error", err, "stack", string(stack))
			return err
		},
	}))
	echoServer.Use(requestLogger())

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": p.Version})
	})
	if deps.Metrics != nil {
		echoServer.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	api := echoServer.Group("/api/v1")
	if p.RateLimit > 0 {
		api.Use(rateLimiter(newVisitorStore(p.RateLimit, rateBurst(p.RateLimit), 10*time.Minute)))
	}
	if p.JWTSecret != "" {
		api.Use(jwtAuth([]byte(p.JWTSecret)))
	}

	var askMiddleware []echo.MiddlewareFunc
	if p.MaxConcurrentAsks > 0 {
		askMiddleware = append(askMiddleware, concurrencyLimit(semaphore.NewWeighted(int64(p.MaxConcurrentAsks))))
	}
	apiv1.NewAPIV1Service(p, deps.Asker, deps.History).RegisterRoutes(api, askMiddleware...)

	return &Server{Profile: p, echoServer: echoServer}, nil
}

// Handler exposes the router, e.g. for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start listens on the profile address and serves in the background.
// Listen errors are returned; serve errors after that are logged.
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.echoServer.Listener = listener

	go func() {
		if err := s.echoServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	slog.Info("server listening", "addr", listener.Addr().String())
	return nil
}

// Addr is the bound address, valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	slog.Info("server stopped properly")
}
