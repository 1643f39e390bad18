package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rafaelspotto/helthgo/internal/adapter/metrics"
	"github.com/rafaelspotto/helthgo/internal/broadcast"
	"github.com/rafaelspotto/helthgo/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const DefaultChannel = "healthgo:vitals"

type envelope struct {
	Origin string          `json:"origin"`
	Record json.RawMessage `json:"record"`
}

// LocalBroadcaster delivers a serialized record to this instance's subscribers.
type LocalBroadcaster interface {
	BroadcastRaw(ctx context.Context, payload []byte) broadcast.Result
}

// Relay shares stored records between instances. Publish sends every local
// record to the channel; Run forwards records from other instances to the
// local subscribers. Records published by this instance are skipped on
// receipt since they were already broadcast locally.
type Relay struct {
	rdb        *goredis.Client
	channel    string
	instanceID string
	local      LocalBroadcaster
	metrics    *metrics.RelayMetrics
}

var _ domain.RecordPublisher = (*Relay)(nil)

// NewRelay creates a relay on DefaultChannel. m may be nil.
func NewRelay(rdb *goredis.Client, instanceID string, local LocalBroadcaster, m *metrics.RelayMetrics) *Relay {
	return &Relay{
		rdb:        rdb,
		channel:    DefaultChannel,
		instanceID: instanceID,
		local:      local,
		metrics:    m,
	}
}

func (r *Relay) Publish(ctx context.Context, rec domain.VitalSignRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	data, err := json.Marshal(envelope{Origin: r.instanceID, Record: body})
	if err != nil {
		return fmt.Errorf("failed to marshal relay envelope: %w", err)
	}

	if err := r.rdb.Publish(ctx, r.channel, data).Err(); err != nil {
		r.published("error")
		return fmt.Errorf("failed to publish record %d: %w", rec.ID, err)
	}
	r.published("ok")
	return nil
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer func() { _ = sub.Close() }()

	slog.Info("Relay subscribed", "channel", r.channel, "instance_id", r.instanceID)

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handle(ctx, msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Relay) handle(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil || len(env.Record) == 0 {
		slog.Warn("Dropping malformed relay message", "error", err)
		r.received("malformed")
		return
	}

	if env.Origin == r.instanceID {
		r.received("own")
		return
	}

	res := r.local.BroadcastRaw(ctx, env.Record)
	slog.Debug("Relayed remote record", "origin", env.Origin, "recipients", res.Recipients, "failed", res.Failed)
	r.received("relayed")
}

func (r *Relay) published(result string) {
	if r.metrics != nil {
		r.metrics.Published.WithLabelValues(result).Inc()
	}
}

func (r *Relay) received(outcome string) {
	if r.metrics != nil {
		r.metrics.Received.WithLabelValues(outcome).Inc()
	}
}
