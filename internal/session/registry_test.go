package session_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rafaelspotto/helthgo/internal/session"
	"github.com/rafaelspotto/helthgo/internal/session/sessiontest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterByRole(t *testing.T) {
	r := session.NewRegistry()
	p := sessiontest.New("p1", session.RoleProducer)
	s1 := sessiontest.New("s1", session.RoleSubscriber)
	s2 := sessiontest.New("s2", session.RoleSubscriber)

	require.NoError(t, r.Register(p))
	require.NoError(t, r.Register(s1))
	require.NoError(t, r.Register(s2))

	assert.Equal(t, 1, r.Count(session.RoleProducer))
	assert.Equal(t, 2, r.Count(session.RoleSubscriber))

	subs := r.Snapshot(session.RoleSubscriber)
	ids := []string{subs[0].ID(), subs[1].ID()}
	assert.ElementsMatch(t, []string{"s1", "s2"}, ids)
	assert.Equal(t, "p1", r.Snapshot(session.RoleProducer)[0].ID())
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	r := session.NewRegistry()
	s := sessiontest.New("s1", session.RoleSubscriber)

	require.NoError(t, r.Register(s))
	require.NoError(t, r.Register(s))

	assert.Equal(t, 1, r.Count(session.RoleSubscriber))
}

func TestRegistry_RoleIsFixedForID(t *testing.T) {
	r := session.NewRegistry()
	require.NoError(t, r.Register(sessiontest.New("same", session.RoleSubscriber)))
	require.NoError(t, r.Register(sessiontest.New("same", session.RoleProducer)))

	assert.Equal(t, 1, r.Count(session.RoleSubscriber))
	assert.Equal(t, 0, r.Count(session.RoleProducer))
}

func TestRegistry_UnregisterIsIdempotent(t *testing.T) {
	r := session.NewRegistry()
	s := sessiontest.New("s1", session.RoleSubscriber)
	require.NoError(t, r.Register(s))

	assert.True(t, r.Unregister(s))
	assert.False(t, r.Unregister(s))
	assert.Equal(t, 0, r.Count(session.RoleSubscriber))

	_, ok := r.Lookup("s1")
	assert.False(t, ok)
}

func TestRegistry_SnapshotUnaffectedByLaterMutation(t *testing.T) {
	r := session.NewRegistry()
	s1 := sessiontest.New("s1", session.RoleSubscriber)
	require.NoError(t, r.Register(s1))

	snap := r.Snapshot(session.RoleSubscriber)

	require.NoError(t, r.Register(sessiontest.New("s2", session.RoleSubscriber)))
	r.Unregister(s1)

	require.Len(t, snap, 1)
	assert.Equal(t, "s1", snap[0].ID())
	assert.Equal(t, "s2", r.Snapshot(session.RoleSubscriber)[0].ID())
}

func TestRegistry_All(t *testing.T) {
	r := session.NewRegistry()
	require.NoError(t, r.Register(sessiontest.New("p1", session.RoleProducer)))
	require.NoError(t, r.Register(sessiontest.New("s1", session.RoleSubscriber)))

	assert.Len(t, r.All(), 2)
}

func TestRegistry_Close(t *testing.T) {
	r := session.NewRegistry()
	p := sessiontest.New("p1", session.RoleProducer)
	s := sessiontest.New("s1", session.RoleSubscriber)
	require.NoError(t, r.Register(p))
	require.NoError(t, r.Register(s))

	r.Close()
	r.Close()

	assert.Equal(t, 0, r.Count(session.RoleProducer))
	assert.Equal(t, 0, r.Count(session.RoleSubscriber))

	closed, reason := s.Closed()
	assert.True(t, closed)
	assert.Equal(t, "server shutting down", reason)
	closed, _ = p.Closed()
	assert.True(t, closed)

	err := r.Register(sessiontest.New("late", session.RoleSubscriber))
	assert.ErrorIs(t, err, session.ErrRegistryClosed)
}

func TestRegistry_ConcurrentMutationAndSnapshots(t *testing.T) {
	r := session.NewRegistry()
	const workers = 16
	const perWorker = 100

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Readers iterate snapshots while writers churn.
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for _, s := range r.Snapshot(session.RoleSubscriber) {
					_ = s.ID()
				}
			}
		}()
	}

	var writers sync.WaitGroup
	for w := range workers {
		writers.Add(1)
		go func() {
			defer writers.Done()
			for i := range perWorker {
				s := sessiontest.New(fmt.Sprintf("w%d-%d", w, i), session.RoleSubscriber)
				assert.NoError(t, r.Register(s))
				if i%2 == 0 {
					r.Unregister(s)
				}
			}
		}()
	}

	writers.Wait()
	close(stop)
	wg.Wait()

	assert.Equal(t, workers*perWorker/2, r.Count(session.RoleSubscriber))
	assert.Len(t, r.All(), workers*perWorker/2)
}
