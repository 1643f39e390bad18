package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/rafaelspotto/helthgo/internal/adapter/metrics"
	"github.com/rafaelspotto/helthgo/internal/domain"
)

var _ domain.VitalSignRepository = (*GuardedRepo)(nil)

// GuardedRepo wraps a repository with a circuit breaker. While the breaker is
// open every call fails fast with domain.ErrStoreUnavailable instead of waiting
// on a database that is down.
type GuardedRepo struct {
	inner   domain.VitalSignRepository
	cb      circuitbreaker.CircuitBreaker[any]
	metrics *metrics.StorageMetrics
}

// NewGuardedRepo opens after failureThreshold consecutive failures and probes
// again after openDuration. m may be nil.
func NewGuardedRepo(inner domain.VitalSignRepository, failureThreshold uint, openDuration time.Duration, m *metrics.StorageMetrics) *GuardedRepo {
	g := &GuardedRepo{inner: inner, metrics: m}
	g.cb = circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(failureThreshold).
		WithDelay(openDuration).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "postgres",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			if g.metrics != nil {
				g.metrics.BreakerState.Set(stateToFloat(e.NewState))
			}
		}).
		Build()
	return g
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

// Open reports whether calls are currently being refused.
func (g *GuardedRepo) Open() bool {
	return g.cb.IsOpen()
}

func guard[T any](g *GuardedRepo, op func() (T, error)) (T, error) {
	if !g.cb.TryAcquirePermit() {
		if g.metrics != nil {
			g.metrics.BreakerRejections.Inc()
		}
		var zero T
		return zero, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, circuitbreaker.ErrOpen)
	}

	v, err := op()
	if countsAsFailure(err) {
		g.cb.RecordError(err)
	} else {
		g.cb.RecordSuccess()
	}
	return v, err
}

// Missing rows and callers giving up say nothing about database health.
func countsAsFailure(err error) bool {
	return err != nil &&
		!errors.Is(err, domain.ErrRecordNotFound) &&
		!errors.Is(err, context.Canceled)
}

func (g *GuardedRepo) Append(ctx context.Context, rec domain.VitalSignRecord) (domain.VitalSignRecord, error) {
	return guard(g, func() (domain.VitalSignRecord, error) { return g.inner.Append(ctx, rec) })
}

func (g *GuardedRepo) GetByID(ctx context.Context, id int64) (domain.VitalSignRecord, error) {
	return guard(g, func() (domain.VitalSignRecord, error) { return g.inner.GetByID(ctx, id) })
}

func (g *GuardedRepo) ListAll(ctx context.Context) ([]domain.VitalSignRecord, error) {
	return guard(g, func() ([]domain.VitalSignRecord, error) { return g.inner.ListAll(ctx) })
}

func (g *GuardedRepo) ListByPatient(ctx context.Context, patientID string) ([]domain.VitalSignRecord, error) {
	return guard(g, func() ([]domain.VitalSignRecord, error) { return g.inner.ListByPatient(ctx, patientID) })
}

func (g *GuardedRepo) ListByPatientBetween(ctx context.Context, patientID string, from, to time.Time) ([]domain.VitalSignRecord, error) {
	return guard(g, func() ([]domain.VitalSignRecord, error) {
		return g.inner.ListByPatientBetween(ctx, patientID, from, to)
	})
}

func (g *GuardedRepo) ListMostRecentPerPatient(ctx context.Context) ([]domain.VitalSignRecord, error) {
	return guard(g, func() ([]domain.VitalSignRecord, error) { return g.inner.ListMostRecentPerPatient(ctx) })
}

func (g *GuardedRepo) ListByStatus(ctx context.Context, status domain.Status) ([]domain.VitalSignRecord, error) {
	return guard(g, func() ([]domain.VitalSignRecord, error) { return g.inner.ListByStatus(ctx, status) })
}

func (g *GuardedRepo) DeleteByPatient(ctx context.Context, patientID string) (int64, error) {
	return guard(g, func() (int64, error) { return g.inner.DeleteByPatient(ctx, patientID) })
}

func (g *GuardedRepo) Count(ctx context.Context) (int64, error) {
	return guard(g, func() (int64, error) { return g.inner.Count(ctx) })
}

func (g *GuardedRepo) CountByStatus(ctx context.Context, status domain.Status) (int64, error) {
	return guard(g, func() (int64, error) { return g.inner.CountByStatus(ctx, status) })
}

func (g *GuardedRepo) CountByPatient(ctx context.Context, patientID string) (int64, error) {
	return guard(g, func() (int64, error) { return g.inner.CountByPatient(ctx, patientID) })
}
