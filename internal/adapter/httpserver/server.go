package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeeinstein/web-kiosk-screen/internal/domain"
	"github.com/angeeinstein/web-kiosk-screen/internal/metrics"
	"github.com/angeeinstein/web-kiosk-screen/internal/platform/config"
	"github.com/labstack/echo/v4"
)

// screenService is the synchronous surface of the screen hub used by the REST API.
type screenService interface {
	List() ([]domain.ScreenStatus, error)
	Get(screenID string) (domain.ScreenDetail, error)
	Rename(screenID, name string) error
	Remove(screenID string) error
	GetLayout(screenID string) (domain.Layout, error)
	SetLayout(screenID string, layout domain.Layout) error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	screens screenService

	websocketHandler http.Handler
	metricsHandler   http.Handler
	httpMetrics      *metrics.HTTPMetrics

	healthChecks []HealthCheck
	startTime    time.Time
}

// Deps groups the collaborators NewServer wires into routes.
type Deps struct {
	Screens          screenService
	WebsocketHandler http.Handler
	MetricsHandler   http.Handler
	HTTPMetrics      *metrics.HTTPMetrics
	HealthChecks     []HealthCheck
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:             e,
		config:           cfg,
		screens:          deps.Screens,
		websocketHandler: deps.WebsocketHandler,
		metricsHandler:   deps.MetricsHandler,
		httpMetrics:      deps.HTTPMetrics,
		healthChecks:     deps.HealthChecks,
		startTime:        time.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
