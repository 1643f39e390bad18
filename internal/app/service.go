package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rafaelspotto/helthgo/internal/domain"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidPeriod = errors.New("period start must not be after its end")

// Ingester stores and broadcasts one raw reading.
type Ingester interface {
	Handle(ctx context.Context, origin string, payload []byte) (domain.VitalSignRecord, error)
}

// Service is the application layer behind the REST API.
type Service struct {
	records     domain.VitalSignRepository
	ingest      Ingester
	recentGroup singleflight.Group
}

func NewService(records domain.VitalSignRepository, ingest Ingester) *Service {
	return &Service{records: records, ingest: ingest}
}

// Submit runs an HTTP-posted reading through the same pipeline as WebSocket
// frames, so it is validated, stored and broadcast identically.
func (s *Service) Submit(ctx context.Context, payload []byte) (domain.VitalSignRecord, error) {
	return s.ingest.Handle(ctx, "http", payload)
}

func (s *Service) All(ctx context.Context) ([]domain.VitalSignRecord, error) {
	return s.records.ListAll(ctx)
}

func (s *Service) ByID(ctx context.Context, id int64) (domain.VitalSignRecord, error) {
	return s.records.GetByID(ctx, id)
}

// ByPatient returns a patient's records, most recent first. A zero from and
// to select the whole history.
func (s *Service) ByPatient(ctx context.Context, patientID string, from, to time.Time) ([]domain.VitalSignRecord, error) {
	if from.IsZero() && to.IsZero() {
		return s.records.ListByPatient(ctx, patientID)
	}
	if to.IsZero() {
		to = time.Now()
	}
	if from.After(to) {
		return nil, &domain.ValidationError{Reason: "from must not be after to", Err: ErrInvalidPeriod}
	}
	return s.records.ListByPatientBetween(ctx, patientID, from, to)
}

// Recent returns the latest record per patient. Concurrent dashboard polls
// share one store query.
func (s *Service) Recent(ctx context.Context) ([]domain.VitalSignRecord, error) {
	v, err, shared := s.recentGroup.Do("recent", func() (any, error) {
		return s.records.ListMostRecentPerPatient(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.DebugContext(ctx, "Recent records query shared")
	}
	return v.([]domain.VitalSignRecord), nil
}

func (s *Service) ByStatus(ctx context.Context, rawStatus string) ([]domain.VitalSignRecord, error) {
	status, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return nil, &domain.ValidationError{Reason: err.Error()}
	}
	return s.records.ListByStatus(ctx, status)
}

func (s *Service) DeletePatient(ctx context.Context, patientID string) (int64, error) {
	n, err := s.records.DeleteByPatient(ctx, patientID)
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Patient records deleted", "patient_id", patientID, "deleted", n)
	return n, nil
}

func (s *Service) PatientCount(ctx context.Context, patientID string) (int64, error) {
	return s.records.CountByPatient(ctx, patientID)
}

func (s *Service) Statistics(ctx context.Context) (domain.Statistics, error) {
	total, err := s.records.Count(ctx)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("failed to count records: %w", err)
	}
	normal, err := s.records.CountByStatus(ctx, domain.StatusNormal)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("failed to count normal records: %w", err)
	}
	alert, err := s.records.CountByStatus(ctx, domain.StatusAlert)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("failed to count alert records: %w", err)
	}
	return domain.Statistics{Total: total, Normal: normal, Alert: alert}, nil
}
