package httpserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rafaelspotto/helthgo/internal/domain"
	"github.com/rafaelspotto/helthgo/internal/platform/config"
	"github.com/rafaelspotto/helthgo/internal/session"
)

type mockAppService struct {
	submitFn        func(ctx context.Context, payload []byte) (domain.VitalSignRecord, error)
	allFn           func(ctx context.Context) ([]domain.VitalSignRecord, error)
	byIDFn          func(ctx context.Context, id int64) (domain.VitalSignRecord, error)
	byPatientFn     func(ctx context.Context, patientID string, from, to time.Time) ([]domain.VitalSignRecord, error)
	recentFn        func(ctx context.Context) ([]domain.VitalSignRecord, error)
	byStatusFn      func(ctx context.Context, status string) ([]domain.VitalSignRecord, error)
	deletePatientFn func(ctx context.Context, patientID string) (int64, error)
	patientCountFn  func(ctx context.Context, patientID string) (int64, error)
	statisticsFn    func(ctx context.Context) (domain.Statistics, error)
}

var errNotImplemented = errors.New("not implemented")

func (m *mockAppService) Submit(ctx context.Context, payload []byte) (domain.VitalSignRecord, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, payload)
	}
	return domain.VitalSignRecord{}, errNotImplemented
}

func (m *mockAppService) All(ctx context.Context) ([]domain.VitalSignRecord, error) {
	if m.allFn != nil {
		return m.allFn(ctx)
	}
	return nil, nil
}

func (m *mockAppService) ByID(ctx context.Context, id int64) (domain.VitalSignRecord, error) {
	if m.byIDFn != nil {
		return m.byIDFn(ctx, id)
	}
	return domain.VitalSignRecord{}, domain.ErrRecordNotFound
}

func (m *mockAppService) ByPatient(ctx context.Context, patientID string, from, to time.Time) ([]domain.VitalSignRecord, error) {
	if m.byPatientFn != nil {
		return m.byPatientFn(ctx, patientID, from, to)
	}
	return nil, nil
}

func (m *mockAppService) Recent(ctx context.Context) ([]domain.VitalSignRecord, error) {
	if m.recentFn != nil {
		return m.recentFn(ctx)
	}
	return nil, nil
}

func (m *mockAppService) ByStatus(ctx context.Context, status string) ([]domain.VitalSignRecord, error) {
	if m.byStatusFn != nil {
		return m.byStatusFn(ctx, status)
	}
	return nil, nil
}

func (m *mockAppService) DeletePatient(ctx context.Context, patientID string) (int64, error) {
	if m.deletePatientFn != nil {
		return m.deletePatientFn(ctx, patientID)
	}
	return 0, nil
}

func (m *mockAppService) PatientCount(ctx context.Context, patientID string) (int64, error) {
	if m.patientCountFn != nil {
		return m.patientCountFn(ctx, patientID)
	}
	return 0, nil
}

func (m *mockAppService) Statistics(ctx context.Context) (domain.Statistics, error) {
	if m.statisticsFn != nil {
		return m.statisticsFn(ctx)
	}
	return domain.Statistics{}, nil
}

type fixedSessions map[session.Role]int

func (f fixedSessions) Count(role session.Role) int { return f[role] }

func testConfig() *config.Config {
	return &config.Config{Port: "0", APIRateLimit: 1000, APIRateBurst: 1000}
}

func newTestServer(t *testing.T, app appService, opts ...func(*Deps)) *Server {
	t.Helper()

	deps := Deps{
		App:      app,
		Sessions: fixedSessions{},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return NewServer(testConfig(), deps)
}

func withHealthChecks(checks ...HealthCheck) func(*Deps) {
	return func(d *Deps) {
		d.HealthChecks = checks
	}
}

func withSessions(s sessionCounter) func(*Deps) {
	return func(d *Deps) {
		d.Sessions = s
	}
}
