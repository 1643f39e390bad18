package session

import (
	"context"
	"time"
)

type Role int

const (
	RoleSubscriber Role = iota
	RoleProducer
)

func (r Role) String() string {
	switch r {
	case RoleProducer:
		return "producer"
	case RoleSubscriber:
		return "subscriber"
	default:
		return "unknown"
	}
}

// Session is a live connection owned by the Registry.
// Implementations must be safe for concurrent Send and Close.
type Session interface {
	ID() string
	Role() Role
	Send(ctx context.Context, payload []byte) error
	Close(reason string) error
	LastActive() time.Time
}
