package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rafaelspotto/helthgo/internal/adapter/metrics"
	"github.com/rafaelspotto/helthgo/internal/domain"
	"github.com/rafaelspotto/helthgo/internal/session"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSendTimeout = 5 * time.Second
	DefaultConcurrency = 32
)

// Snapshotter is the read side of the session registry.
type Snapshotter interface {
	Snapshot(role session.Role) []session.Session
}

// Result summarises one broadcast pass.
type Result struct {
	Recipients int
	Delivered  int
	Failed     int
}

type Broadcaster struct {
	sessions    Snapshotter
	clock       clockwork.Clock
	sendTimeout time.Duration
	concurrency int
	metrics     *metrics.BroadcastMetrics
}

type Option func(*Broadcaster)

func WithSendTimeout(d time.Duration) Option {
	return func(b *Broadcaster) {
		if d > 0 {
			b.sendTimeout = d
		}
	}
}

func WithConcurrency(n int) Option {
	return func(b *Broadcaster) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

func WithMetrics(m *metrics.BroadcastMetrics) Option {
	return func(b *Broadcaster) { b.metrics = m }
}

func NewBroadcaster(sessions Snapshotter, clock clockwork.Clock, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		sessions:    sessions,
		clock:       clock,
		sendTimeout: DefaultSendTimeout,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish implements domain.RecordPublisher. Delivery failures are reported
// through logs and metrics, never as an error.
func (b *Broadcaster) Publish(ctx context.Context, rec domain.VitalSignRecord) error {
	if _, err := b.Broadcast(ctx, rec); err != nil {
		return err
	}
	return nil
}

// Broadcast sends rec to every subscriber registered at call time and waits
// for all sends to finish or time out. Only a serialization failure is
// returned as an error.
func (b *Broadcaster) Broadcast(ctx context.Context, rec domain.VitalSignRecord) (Result, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal record %d: %w", rec.ID, err)
	}
	return b.BroadcastRaw(ctx, payload), nil
}

// BroadcastRaw sends an already serialized frame.
func (b *Broadcaster) BroadcastRaw(ctx context.Context, payload []byte) Result {
	recipients := b.sessions.Snapshot(session.RoleSubscriber)
	res := Result{Recipients: len(recipients)}

	if b.metrics != nil {
		b.metrics.Broadcasts.Inc()
		b.metrics.Recipients.Observe(float64(len(recipients)))
	}
	if len(recipients) == 0 {
		return res
	}

	// The producer hanging up must not cut delivery short.
	sendCtx := context.WithoutCancel(ctx)

	var delivered, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for _, s := range recipients {
		g.Go(func() error {
			if err := b.send(sendCtx, s, payload); err != nil {
				failed.Add(1)
				slog.WarnContext(ctx, "Delivery failed", "subscriber_id", s.ID(), "error", err)
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res.Delivered = int(delivered.Load())
	res.Failed = int(failed.Load())
	return res
}

func (b *Broadcaster) send(ctx context.Context, s session.Session, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, b.sendTimeout)
	defer cancel()

	start := b.clock.Now()

	// Send runs apart so a session that ignores ctx still cannot hold the pass.
	done := make(chan error, 1)
	go func() { done <- s.Send(ctx, payload) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if b.metrics != nil {
		b.metrics.SendDuration.Observe(b.clock.Since(start).Seconds())
		if err != nil {
			b.metrics.Deliveries.WithLabelValues("failed").Inc()
		} else {
			b.metrics.Deliveries.WithLabelValues("delivered").Inc()
		}
	}
	if err != nil {
		return &domain.DeliveryError{SessionID: s.ID(), Err: err}
	}
	return nil
}
