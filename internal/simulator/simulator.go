package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rafaelspotto/helthgo/internal/platform/retry"
	"golang.org/x/sync/errgroup"
)

// UserAgent identifies the simulator as a producer to the server's classifier.
const UserAgent = "HealthGo-Desktop-Simulator"

const (
	DefaultInterval = 200 * time.Millisecond
	writeTimeout    = 5 * time.Second
)

var DefaultDialPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
}

type Config struct {
	URL        string
	Interval   time.Duration
	UserAgent  string
	DialPolicy retry.Policy
}

type Simulator struct {
	cfg    Config
	dialer *websocket.Dialer
	clock  clockwork.Clock
}

func New(cfg Config, clock clockwork.Clock) *Simulator {
	if cfg.UserAgent == "" {
		cfg.UserAgent = UserAgent
	}
	if cfg.DialPolicy.MaxAttempts == 0 {
		cfg.DialPolicy = DefaultDialPolicy
	}
	return &Simulator{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		clock:  clock,
	}
}

// Run replays every file concurrently, each on its own connection. A failing
// file does not stop the others; the first error is returned once all finish.
func (s *Simulator) Run(ctx context.Context, files []string) error {
	var g errgroup.Group
	for _, file := range files {
		g.Go(func() error {
			readings, err := LoadFile(file)
			if err != nil {
				slog.Error("Failed to load recording", "file", file, "error", err)
				return err
			}
			sent, err := s.Stream(ctx, filepath.Base(file), readings)
			if err != nil {
				slog.Error("Replay failed", "file", file, "sent", sent, "error", err)
				return err
			}
			slog.Info("Replay finished", "file", file, "sent", sent)
			return nil
		})
	}
	return g.Wait()
}

// Stream dials the server and sends readings one per interval. It returns how
// many frames were written.
func (s *Simulator) Stream(ctx context.Context, name string, readings []Reading) (int, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	slog.Info("Replay connected", "recording", name, "readings", len(readings))

	sent := 0
	for i, reading := range readings {
		if i > 0 && s.cfg.Interval > 0 {
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case <-s.clock.After(s.cfg.Interval):
			}
		}

		payload, err := json.Marshal(reading)
		if err != nil {
			return sent, fmt.Errorf("failed to encode reading: %w", err)
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return sent, fmt.Errorf("failed to send reading %d: %w", i+1, err)
		}
		sent++
		slog.Debug("Reading sent", "recording", name, "patient_id", reading.PatientID, "n", sent)
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replay finished")
	_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeTimeout))
	return sent, nil
}

func (s *Simulator) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("User-Agent", s.cfg.UserAgent)

	policy := s.cfg.DialPolicy
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Dial failed, retrying", "url", s.cfg.URL, "attempt", attempt, "backoff", backoff, "error", err)
	}

	return retry.Do(ctx, policy, retry.Transient, func(ctx context.Context) (*websocket.Conn, error) {
		conn, resp, err := s.dialer.DialContext(ctx, s.cfg.URL, header)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", s.cfg.URL, err)
		}
		return conn, nil
	})
}
