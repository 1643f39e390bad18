package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rafaelspotto/helthgo/internal/platform/version"
	"github.com/rafaelspotto/helthgo/internal/session"
)

const readinessTimeout = 5 * time.Second

// HealthCheck is a named dependency probe run by /health/ready.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type livenessResponse struct {
	Status      string  `json:"status"`
	Service     string  `json:"service"`
	Uptime      float64 `json:"uptime"`
	Producers   int     `json:"producers"`
	Subscribers int     `json:"subscribers"`
}

type readinessResponse struct {
	Status      string            `json:"status"`
	FailedCheck string            `json:"failed_check,omitempty"`
	Error       string            `json:"error,omitempty"`
	Checks      map[string]string `json:"checks,omitempty"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleLiveness(c echo.Context) error {
	return writeJSON(c, http.StatusOK, livenessResponse{
		Status:      "ok",
		Service:     version.Service,
		Uptime:      time.Since(s.startTime).Seconds(),
		Producers:   s.sessions.Count(session.RoleProducer),
		Subscribers: s.sessions.Count(session.RoleSubscriber),
	})
}

// handleReadiness runs every dependency check, even after one fails, so the
// body shows the state of each store. The first failure names the response.
func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	resp := readinessResponse{Status: "ready"}
	if len(s.healthChecks) > 0 {
		resp.Checks = make(map[string]string, len(s.healthChecks))
	}

	for _, hc := range s.healthChecks {
		if err := hc.Check(ctx); err != nil {
			resp.Checks[hc.Name] = err.Error()
			if resp.FailedCheck == "" {
				resp.Status = "unhealthy"
				resp.FailedCheck = hc.Name
				resp.Error = err.Error()
			}
			continue
		}
		resp.Checks[hc.Name] = "ok"
	}

	status := http.StatusOK
	if resp.FailedCheck != "" {
		status = http.StatusServiceUnavailable
	}
	return writeJSON(c, status, resp)
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
