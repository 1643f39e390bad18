package httpserver

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rafaelspotto/helthgo/internal/domain"
	apperrors "github.com/rafaelspotto/helthgo/internal/platform/errors"
	"github.com/rafaelspotto/helthgo/internal/session"
)

const maxReadingBodyBytes = 64 << 10

func (s *Server) registerVitalsRoutes() {
	api := s.echo.Group("/api",
		middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: []string{"*"}}),
		newRateLimiter(s.config.APIRateLimit, s.config.APIRateBurst),
	)

	patients := api.Group("/pacientes")
	patients.GET("/dados", s.handleListAll)
	patients.POST("/dados", s.handleSubmit)
	patients.GET("/dados/recentes", s.handleRecent)
	patients.GET("/dados/:id", s.handleGetByID)
	patients.GET("/dados/status/:status", s.handleListByStatus)
	patients.GET("/:pacienteId/dados", s.handleListByPatient)
	patients.DELETE("/:pacienteId/dados", s.handleDeletePatient)
	patients.GET("/:pacienteId/total", s.handlePatientTotal)
	patients.GET("/estatisticas", s.handleStatistics)
	patients.GET("/health", s.handleAPIHealth)

	api.GET("/sessions", s.handleSessions)
}

func (s *Server) handleListAll(c echo.Context) error {
	records, err := s.app.All(c.Request().Context())
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	return writeRecords(c, records)
}

func (s *Server) handleSubmit(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxReadingBodyBytes))
	if err != nil {
		return apperrors.ValidationError("failed to read request body")
	}

	rec, err := s.app.Submit(c.Request().Context(), payload)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, rec)
}

func (s *Server) handleRecent(c echo.Context) error {
	records, err := s.app.Recent(c.Request().Context())
	if err != nil {
		return fmt.Errorf("failed to list recent records: %w", err)
	}
	return writeRecords(c, records)
}

func (s *Server) handleGetByID(c echo.Context) error {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return apperrors.ValidationError("invalid record id").WithField("record_id", raw)
	}

	rec, err := s.app.ByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, rec)
}

func (s *Server) handleListByStatus(c echo.Context) error {
	records, err := s.app.ByStatus(c.Request().Context(), c.Param("status"))
	if err != nil {
		return err
	}
	return writeRecords(c, records)
}

func (s *Server) handleListByPatient(c echo.Context) error {
	from, err := parseTimeParam(c, "from")
	if err != nil {
		return err
	}
	to, err := parseTimeParam(c, "to")
	if err != nil {
		return err
	}

	patientID := c.Param("pacienteId")
	records, err := s.app.ByPatient(c.Request().Context(), patientID, from, to)
	if err != nil {
		return err
	}
	return writeRecords(c, records)
}

func (s *Server) handleDeletePatient(c echo.Context) error {
	deleted, err := s.app.DeletePatient(c.Request().Context(), c.Param("pacienteId"))
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (s *Server) handlePatientTotal(c echo.Context) error {
	patientID := c.Param("pacienteId")
	total, err := s.app.PatientCount(c.Request().Context(), patientID)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, map[string]any{"paciente_id": patientID, "total": total})
}

func (s *Server) handleStatistics(c echo.Context) error {
	stats, err := s.app.Statistics(c.Request().Context())
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, stats)
}

func (s *Server) handleAPIHealth(c echo.Context) error {
	if err := c.String(http.StatusOK, "HealthGo backend running"); err != nil {
		return fmt.Errorf("failed to write health response: %w", err)
	}
	return nil
}

func (s *Server) handleSessions(c echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string]int{
		"producers":   s.sessions.Count(session.RoleProducer),
		"subscribers": s.sessions.Count(session.RoleSubscriber),
	})
}

func parseTimeParam(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.ValidationError(name+" must be an RFC 3339 timestamp").WithField(name, raw)
	}
	return t, nil
}

func writeJSON(c echo.Context, status int, body any) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// writeRecords sends an empty list as [] rather than null.
func writeRecords(c echo.Context, records []domain.VitalSignRecord) error {
	if records == nil {
		records = []domain.VitalSignRecord{}
	}
	return writeJSON(c, http.StatusOK, records)
}
