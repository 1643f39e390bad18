package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rafaelspotto/helthgo/internal/adapter/metrics"
	"github.com/rafaelspotto/helthgo/internal/domain"
)

type Pipeline struct {
	repo       domain.VitalSignRepository
	publishers []domain.RecordPublisher
	clock      clockwork.Clock
	metrics    *metrics.IngestMetrics
}

// NewPipeline wires the store and the publishers that receive every stored
// record. m may be nil.
func NewPipeline(repo domain.VitalSignRepository, clock clockwork.Clock, m *metrics.IngestMetrics, publishers ...domain.RecordPublisher) *Pipeline {
	return &Pipeline{
		repo:       repo,
		publishers: publishers,
		clock:      clock,
		metrics:    m,
	}
}

// Handle processes one frame from origin (a session id, or "http").
// It returns *domain.ValidationError or *domain.StorageError on failure; in
// both cases nothing is broadcast.
func (p *Pipeline) Handle(ctx context.Context, origin string, payload []byte) (domain.VitalSignRecord, error) {
	start := p.clock.Now()

	rec, err := Decode(payload)
	if err != nil {
		slog.WarnContext(ctx, "Rejected reading", "origin", origin, "error", err)
		p.observe("invalid", start)
		return domain.VitalSignRecord{}, err
	}

	// Postgres keeps microseconds; truncate so live and stored copies match.
	rec.ServerReceivedAt = p.clock.Now().UTC().Truncate(time.Microsecond)

	stored, err := p.repo.Append(ctx, rec)
	if err != nil {
		serr := &domain.StorageError{PatientID: rec.PatientID, Err: err}
		slog.ErrorContext(ctx, "Failed to store reading", "origin", origin, "patient_id", rec.PatientID, "error", err)
		p.observe("storage_error", start)
		return domain.VitalSignRecord{}, serr
	}

	slog.DebugContext(ctx, "Reading stored", "origin", origin, "patient_id", stored.PatientID, "record_id", stored.ID, "status", string(stored.Status))

	for _, pub := range p.publishers {
		if err := pub.Publish(ctx, stored); err != nil {
			slog.WarnContext(ctx, "Publish failed", "record_id", stored.ID, "error", err)
		}
	}

	if p.metrics != nil {
		p.metrics.ReadingsByStatus.WithLabelValues(string(stored.Status)).Inc()
	}
	p.observe("stored", start)
	return stored, nil
}

func (p *Pipeline) observe(result string, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.Readings.WithLabelValues(result).Inc()
	p.metrics.ProcessingDuration.Observe(p.clock.Since(start).Seconds())
}
