package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rafaelspotto/helthgo/internal/adapter/metrics"
	"github.com/rafaelspotto/helthgo/internal/domain"
	"github.com/rafaelspotto/helthgo/internal/platform/correlation"
	"github.com/rafaelspotto/helthgo/internal/session"
)

// Ingester consumes producer frames.
type Ingester interface {
	Handle(ctx context.Context, origin string, payload []byte) (domain.VitalSignRecord, error)
}

type Handler struct {
	upgrader   websocket.Upgrader
	classifier *session.Classifier
	registry   *session.Registry
	ingest     Ingester
	limits     *Limits
	clock      clockwork.Clock
	metrics    *metrics.WebSocketMetrics
}

type HandlerConfig struct {
	Classifier  *session.Classifier
	Registry    *session.Registry
	Ingest      Ingester
	Limits      *Limits // nil disables connection limits
	CheckOrigin func(r *http.Request) bool
	Clock       clockwork.Clock
	Metrics     *metrics.WebSocketMetrics // may be nil
}

func NewHandler(cfg HandlerConfig) *Handler {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		classifier: cfg.Classifier,
		registry:   cfg.Registry,
		ingest:     cfg.Ingest,
		limits:     cfg.Limits,
		clock:      clock,
		metrics:    cfg.Metrics,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := remoteIP(r)
	if h.limits != nil {
		ok, reason := h.limits.Acquire(ip)
		if !ok {
			slog.Warn("WebSocket connection refused", "remote_addr", ip, "reason", string(reason))
			if h.metrics != nil {
				h.metrics.Rejected.WithLabelValues(string(reason)).Inc()
			}
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}
		defer h.limits.Release(ip)
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.Debug("WebSocket upgrade failed", "remote_addr", ip, "error", err)
		return
	}

	role := h.classifier.Classify(r.UserAgent())
	conn := newConn(ws, role, h.clock)

	if err := h.registry.Register(conn); err != nil {
		slog.Warn("Session rejected", "session_id", conn.ID(), "error", err)
		_ = conn.Close("server shutting down")
		return
	}

	roleLabel := role.String()
	if h.metrics != nil {
		h.metrics.ConnectionsTotal.WithLabelValues(roleLabel).Inc()
		h.metrics.ActiveSessions.WithLabelValues(roleLabel).Inc()
	}
	slog.Info("Session connected", "session_id", conn.ID(), "role", roleLabel, "remote_addr", ip, "user_agent", r.UserAgent())

	defer func() {
		h.registry.Unregister(conn)
		_ = conn.Close("")
		if h.metrics != nil {
			h.metrics.ActiveSessions.WithLabelValues(roleLabel).Dec()
		}
		slog.Info("Session disconnected", "session_id", conn.ID(), "role", roleLabel)
	}()

	h.readLoop(r.Context(), conn)
}

// readLoop runs until the peer goes away. Producer frames are ingested one at
// a time, so a session's records are stored and broadcast in arrival order.
func (h *Handler) readLoop(ctx context.Context, conn *Conn) {
	ctx = correlation.WithSessionID(context.WithoutCancel(ctx), conn.ID())

	for {
		msgType, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
				!errors.Is(err, net.ErrClosed) {
				slog.DebugContext(ctx, "WebSocket read ended", "error", err)
			}
			return
		}

		conn.touch()
		conn.extendReadDeadline()

		if msgType != websocket.TextMessage {
			continue
		}
		if h.metrics != nil {
			h.metrics.FramesReceived.WithLabelValues(conn.Role().String()).Inc()
		}

		if conn.Role() != session.RoleProducer {
			slog.DebugContext(ctx, "Ignoring frame from subscriber", "bytes", len(data))
			continue
		}

		frameCtx := correlation.WithID(ctx, correlation.NewID())
		// Errors are logged by the pipeline; the session stays open.
		_, _ = h.ingest.Handle(frameCtx, conn.ID(), data)
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
