package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rafaelspotto/helthgo/internal/session"
)

const (
	writeDeadline = 5 * time.Second
	pingInterval  = 30 * time.Second
	pongDeadline  = 60 * time.Second
	maxFrameSize  = 64 << 10
)

var errConnClosed = errors.New("connection closed")

var _ session.Session = (*Conn)(nil)

// Conn is a live WebSocket session. Writes are serialized; reads belong to
// the handler's read loop.
type Conn struct {
	id    string
	role  session.Role
	ws    *websocket.Conn
	clock clockwork.Clock

	writeMu    sync.Mutex
	lastActive atomic.Int64
	closed     chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

func newConn(ws *websocket.Conn, role session.Role, clock clockwork.Clock) *Conn {
	c := &Conn{
		id:     uuid.NewString(),
		role:   role,
		ws:     ws,
		clock:  clock,
		closed: make(chan struct{}),
	}
	c.touch()

	ws.SetReadLimit(maxFrameSize)
	c.extendReadDeadline()
	ws.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		c.touch()
		return nil
	})

	c.wg.Add(1)
	go c.pingLoop()
	return c
}

func (c *Conn) ID() string         { return c.id }
func (c *Conn) Role() session.Role { return c.role }

func (c *Conn) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

// Send writes one text frame. The write deadline is the earlier of ctx's
// deadline and the default write deadline.
func (c *Conn) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closed:
		return errConnClosed
	default:
	}

	deadline := time.Now().Add(writeDeadline)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.ws.SetWriteDeadline(deadline)
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close sends a close frame carrying reason and closes the socket. Only the
// first call has any effect.
func (c *Conn) Close(reason string) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeDeadline))
		err = c.ws.Close()
		c.writeMu.Unlock()
	})
	c.wg.Wait()
	return err
}

func (c *Conn) touch() {
	c.lastActive.Store(c.clock.Now().UnixNano())
}

func (c *Conn) extendReadDeadline() {
	_ = c.ws.SetReadDeadline(time.Now().Add(pongDeadline))
}

func (c *Conn) pingLoop() {
	defer c.wg.Done()

	ticker := c.clock.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-ticker.Chan():
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}
