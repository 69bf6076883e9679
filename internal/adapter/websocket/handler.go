package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/signboard/internal/adapter/metrics"
	"github.com/pscheid92/signboard/internal/domain"
	apperrors "github.com/pscheid92/signboard/internal/errors"
	"github.com/pscheid92/signboard/internal/platform/correlation"
)

// Handler upgrades hub connections and runs one read loop per session.
// Invocations from one session are handled in order; sessions run in parallel.
type Handler struct {
	hub        HubService
	dispatcher *dispatcher
	upgrader   websocket.Upgrader
	limiter    *ConnectionLimiter
	clock      clockwork.Clock
	metrics    *metrics.WebSocketMetrics

	mu       sync.Mutex
	sessions map[*Session]struct{}
	closing  bool
}

// NewHandler creates the websocket entry point of the hub. m may be nil.
func NewHandler(hub HubService, checkOrigin func(r *http.Request) bool, limiter *ConnectionLimiter, clock clockwork.Clock, m *metrics.WebSocketMetrics) *Handler {
	return &Handler{
		hub:        hub,
		dispatcher: &dispatcher{hub: hub},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		limiter:  limiter,
		clock:    clock,
		metrics:  m,
		sessions: make(map[*Session]struct{}),
	}
}

// HandleOpen serves GET /hub: a new session.
func (h *Handler) HandleOpen(c echo.Context) error {
	return h.serve(c, false)
}

// HandleResume serves GET /hub/reconnect: a session resumed after a transient
// interruption.
func (h *Handler) HandleResume(c echo.Context) error {
	return h.serve(c, true)
}

func (h *Handler) serve(c echo.Context, resume bool) error {
	rawID := c.QueryParam("id")
	identity, err := domain.ParseIdentity(rawID)
	if err != nil {
		h.reject("invalid_id")
		return apperrors.ValidationError("invalid client id").WithField("id", rawID)
	}

	if !h.limiter.Acquire() {
		h.reject("capacity")
		return apperrors.UnavailableError("too many connections").WithField("max", h.limiter.Max())
	}
	defer h.limiter.Release()

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.reject("upgrade")
		slog.Debug("WebSocket upgrade failed", "error", err, "remote_addr", c.RealIP())
		return nil
	}

	session := newSession(conn, identity, h.clock, h.metrics)
	if !h.track(session) {
		session.stopGraceful("server shutting down")
		return nil
	}
	defer h.untrack(session)

	ctx := correlation.WithSession(correlation.Ensure(c.Request().Context()), session.ID())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.DebugContext(ctx, "Session opened", "client_id", identity, "resume", resume, "remote_addr", c.RealIP())

	if resume {
		h.event("resume")
		h.hub.OnReconnected(ctx, identity, session)
	} else {
		h.event("open")
		h.hub.OnConnected(ctx, identity, session)
	}

	h.readLoop(ctx, session)

	h.event("close")
	h.hub.OnDisconnected(ctx, identity, session)
	session.stop()
	return nil
}

func (h *Handler) readLoop(ctx context.Context, session *Session) {
	for {
		_, frame, err := session.connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.DebugContext(ctx, "Session read ended", "error", err)
			}
			return
		}
		session.updateReadDeadline()

		reply := h.dispatcher.dispatch(ctx, session.identity, frame)
		if reply == nil {
			continue
		}
		if err := session.enqueue(reply); err != nil {
			slog.WarnContext(ctx, "Failed to queue reply", "error", err)
		}
	}
}

// Shutdown closes every open session with a close frame and refuses new ones.
func (h *Handler) Shutdown(reason string) {
	h.mu.Lock()
	h.closing = true
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.stopGraceful(reason)
	}
	slog.Info("WebSocket sessions closed", "count", len(sessions))
}

// ActiveSessions returns the number of open sessions, controller included.
func (h *Handler) ActiveSessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Handler) track(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.sessions[s] = struct{}{}
	if h.metrics != nil {
		h.metrics.ActiveConnections.Set(float64(len(h.sessions)))
	}
	return true
}

func (h *Handler) untrack(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, s)
	if h.metrics != nil {
		h.metrics.ActiveConnections.Set(float64(len(h.sessions)))
	}
}

func (h *Handler) reject(reason string) {
	if h.metrics != nil {
		h.metrics.RejectedConnections.WithLabelValues(reason).Inc()
	}
}

func (h *Handler) event(name string) {
	if h.metrics != nil {
		h.metrics.SessionEvents.WithLabelValues(name).Inc()
	}
}
