package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rafaelspotto/helthgo/internal/adapter/metrics"
	"github.com/rafaelspotto/helthgo/internal/domain"
	"github.com/rafaelspotto/helthgo/internal/platform/config"
	"github.com/rafaelspotto/helthgo/internal/session"
)

type appService interface {
	Submit(ctx context.Context, payload []byte) (domain.VitalSignRecord, error)
	All(ctx context.Context) ([]domain.VitalSignRecord, error)
	ByID(ctx context.Context, id int64) (domain.VitalSignRecord, error)
	ByPatient(ctx context.Context, patientID string, from, to time.Time) ([]domain.VitalSignRecord, error)
	Recent(ctx context.Context) ([]domain.VitalSignRecord, error)
	ByStatus(ctx context.Context, status string) ([]domain.VitalSignRecord, error)
	DeletePatient(ctx context.Context, patientID string) (int64, error)
	PatientCount(ctx context.Context, patientID string) (int64, error)
	Statistics(ctx context.Context) (domain.Statistics, error)
}

type sessionCounter interface {
	Count(role session.Role) int
}

// Deps are the collaborators the HTTP server routes to.
type Deps struct {
	App              appService
	Sessions         sessionCounter
	WebSocketHandler http.Handler
	MetricsHandler   http.Handler         // nil disables /metrics
	HTTPMetrics      *metrics.HTTPMetrics // may be nil
	HealthChecks     []HealthCheck
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app      appService
	sessions sessionCounter

	websocketHandler http.Handler
	metricsHandler   http.Handler
	httpMetrics      *metrics.HTTPMetrics

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:             e,
		config:           cfg,
		app:              deps.App,
		sessions:         deps.Sessions,
		websocketHandler: deps.WebSocketHandler,
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
