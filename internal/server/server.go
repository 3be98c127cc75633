package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tkempf/shoppulse/internal/config"
	"github.com/tkempf/shoppulse/internal/domain"
	apperrors "github.com/tkempf/shoppulse/internal/errors"
	"github.com/tkempf/shoppulse/internal/hub"
)

// postgresHealthChecker is the minimal interface for readiness checks.
type postgresHealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	service   domain.ShopService
	hub       *hub.Hub
	simulator domain.SimulatorControl
	limits    *ConnectionLimits
	postgres  postgresHealthChecker
	clock     clockwork.Clock
	startTime time.Time
}

func NewServer(
	cfg *config.Config,
	service domain.ShopService,
	h *hub.Hub,
	simulator domain.SimulatorControl,
	postgres postgresHealthChecker,
	clock clockwork.Clock,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		service:   service,
		hub:       h,
		simulator: simulator,
		limits:    NewConnectionLimits(cfg.MaxClients, cfg.MaxClientsPerIP, cfg.ConnRate, cfg.ConnBurst),
		postgres:  postgres,
		clock:     clock,
		startTime: clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
