package session

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

var ErrRegistryClosed = errors.New("session registry closed")

const shutdownReason = "server shutting down"

// state is never mutated once published.
type state struct {
	byID        map[string]Session
	producers   []Session
	subscribers []Session
}

var emptyState = &state{byID: map[string]Session{}}

func (s *state) view(role Role) []Session {
	if role == RoleProducer {
		return s.producers
	}
	return s.subscribers
}

// Registry is a copy-on-write set of live sessions. Writers serialize on mu
// and publish a fresh state; readers load the current state without locking.
type Registry struct {
	mu     sync.Mutex
	closed bool
	cur    atomic.Pointer[state]
}

func NewRegistry() *Registry {
	r := &Registry{}
	r.cur.Store(emptyState)
	return r
}

// Register adds the session to its role view. Registering an id that is
// already present is a no-op and keeps the original entry.
func (r *Registry) Register(s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}

	old := r.cur.Load()
	if _, ok := old.byID[s.ID()]; ok {
		return nil
	}

	next := &state{
		byID:        make(map[string]Session, len(old.byID)+1),
		producers:   old.producers,
		subscribers: old.subscribers,
	}
	for id, existing := range old.byID {
		next.byID[id] = existing
	}
	next.byID[s.ID()] = s

	if s.Role() == RoleProducer {
		next.producers = appendCopy(old.producers, s)
	} else {
		next.subscribers = appendCopy(old.subscribers, s)
	}

	r.cur.Store(next)
	return nil
}

// Unregister removes the session by id and reports whether it was present.
func (r *Registry) Unregister(s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.cur.Load()
	existing, ok := old.byID[s.ID()]
	if !ok {
		return false
	}

	next := &state{
		byID:        make(map[string]Session, len(old.byID)),
		producers:   old.producers,
		subscribers: old.subscribers,
	}
	for id, other := range old.byID {
		if id != s.ID() {
			next.byID[id] = other
		}
	}

	if existing.Role() == RoleProducer {
		next.producers = without(old.producers, s.ID())
	} else {
		next.subscribers = without(old.subscribers, s.ID())
	}

	r.cur.Store(next)
	return true
}

// Snapshot returns the sessions of one role as of the call. The slice is
// shared and must not be modified.
func (r *Registry) Snapshot(role Role) []Session {
	return r.cur.Load().view(role)
}

// All returns every live session regardless of role.
func (r *Registry) All() []Session {
	st := r.cur.Load()
	all := make([]Session, 0, len(st.producers)+len(st.subscribers))
	all = append(all, st.producers...)
	return append(all, st.subscribers...)
}

func (r *Registry) Lookup(id string) (Session, bool) {
	s, ok := r.cur.Load().byID[id]
	return s, ok
}

func (r *Registry) Count(role Role) int {
	return len(r.cur.Load().view(role))
}

// Close empties the registry, closes every session and rejects further
// registrations. Calling it twice is harmless.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	old := r.cur.Swap(emptyState)
	r.mu.Unlock()

	for _, s := range old.byID {
		if err := s.Close(shutdownReason); err != nil {
			slog.Debug("Session close failed during shutdown", "session_id", s.ID(), "error", err)
		}
	}
	slog.Info("Session registry closed", "sessions", len(old.byID))
}

func appendCopy(list []Session, s Session) []Session {
	out := make([]Session, len(list), len(list)+1)
	copy(out, list)
	return append(out, s)
}

func without(list []Session, id string) []Session {
	out := make([]Session, 0, len(list))
	for _, s := range list {
		if s.ID() != id {
			out = append(out, s)
		}
	}
	return out
}
