package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

const idleReason = "idle timeout"

// Reaper unregisters and closes sessions whose LastActive is older than the
// idle bound. It runs independently of broadcasting.
type Reaper struct {
	registry *Registry
	clock    clockwork.Clock
	interval time.Duration
	idle     time.Duration
	onReap   func(Session)
}

func NewReaper(registry *Registry, clock clockwork.Clock, interval, idle time.Duration, onReap func(Session)) *Reaper {
	return &Reaper{
		registry: registry,
		clock:    clock,
		interval: interval,
		idle:     idle,
		onReap:   onReap,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.Sweep()
		}
	}
}

// Sweep closes every idle session once and returns how many were reaped.
func (r *Reaper) Sweep() int {
	now := r.clock.Now()
	reaped := 0

	for _, s := range r.registry.All() {
		idleFor := now.Sub(s.LastActive())
		if idleFor < r.idle {
			continue
		}
		if !r.registry.Unregister(s) {
			continue
		}
		slog.Info("Reaping idle session", "session_id", s.ID(), "role", s.Role().String(), "idle", idleFor)
		_ = s.Close(idleReason)
		if r.onReap != nil {
			r.onReap(s)
		}
		reaped++
	}
	return reaped
}
