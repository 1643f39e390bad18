package sessiontest

import (
	"context"
	"sync"
	"time"

	"github.com/rafaelspotto/helthgo/internal/session"
)

// Fake records every payload it is sent. Test use only.
type Fake struct {
	id   string
	role session.Role

	// SendFunc, when set, replaces the default recording behaviour.
	SendFunc func(ctx context.Context, payload []byte) error

	mu          sync.Mutex
	sent        [][]byte
	closed      bool
	closeReason string
	lastActive  time.Time
}

func New(id string, role session.Role) *Fake {
	return &Fake{id: id, role: role, lastActive: time.Now()}
}

func (f *Fake) ID() string         { return f.id }
func (f *Fake) Role() session.Role { return f.role }

func (f *Fake) Send(ctx context.Context, payload []byte) error {
	if f.SendFunc != nil {
		if err := f.SendFunc(ctx, payload); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, payload)
	return nil
}

func (f *Fake) Close(reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closeReason = reason
	return nil
}

func (f *Fake) LastActive() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastActive
}

func (f *Fake) SetLastActive(t time.Time) {
	f.mu.Lock()
	f.lastActive = t
	f.mu.Unlock()
}

func (f *Fake) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *Fake) Closed() (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed, f.closeReason
}
