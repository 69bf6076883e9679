package hub

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/signboard/internal/adapter/metrics"
	"github.com/pscheid92/signboard/internal/domain"
)

// Hub methods invocable by peers.
const (
	MethodGetEmployeeData      = "GetEmployeeData"
	MethodGetLocationData      = "GetLocationData"
	MethodDataUpdateFromClient = "DataUpdateFromClient"
	MethodShutDown             = "ShutDown"
)

// Hub is invoked concurrently, once per inbound call. All shared state lives
// in State.
type Hub struct {
	state   *State
	gateway domain.Gateway
	relay   domain.UpdateRelay
	metrics *metrics.HubMetrics
	clock   clockwork.Clock
}

type Option func(*Hub)

// WithRelay forwards accepted updates to other instances.
func WithRelay(relay domain.UpdateRelay) Option {
	return func(h *Hub) { h.relay = relay }
}

func WithMetrics(m *metrics.HubMetrics) Option {
	return func(h *Hub) { h.metrics = m }
}

func WithClock(clock clockwork.Clock) Option {
	return func(h *Hub) { h.clock = clock }
}

func New(state *State, gateway domain.Gateway, opts ...Option) *Hub {
	h := &Hub{
		state:   state,
		gateway: gateway,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnConnected is called by the transport when a session opens.
func (h *Hub) OnConnected(ctx context.Context, identity domain.Identity, session domain.Session) {
	h.state.Registry.Open(ctx, identity, session)
}

// OnReconnected is called by the transport when a session resumes after a
// transient interruption.
func (h *Hub) OnReconnected(ctx context.Context, identity domain.Identity, session domain.Session) {
	h.state.Registry.Resume(ctx, identity, session)
}

// OnDisconnected is called by the transport when a session ends.
func (h *Hub) OnDisconnected(ctx context.Context, identity domain.Identity, session domain.Session) {
	h.state.Registry.Close(ctx, identity, session)
}

// ShutDown orders every registered session to shut down. Only the controller
// may do this; other callers are silently rejected.
func (h *Hub) ShutDown(ctx context.Context, caller domain.Identity) {
	defer h.observe(MethodShutDown, h.clock.Now())
	h.state.Registry.Shutdown(ctx, caller)
}

// GetEmployeeData returns the current board, or nil when it cannot be loaded.
func (h *Hub) GetEmployeeData(ctx context.Context) *domain.Dataset {
	defer h.observe(MethodGetEmployeeData, h.clock.Now())

	ds, err := h.state.Cache.Get(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load employee data", "error", err)
		return nil
	}
	return ds
}

// GetLocationData returns the location names by id, read fresh on every
// call. It returns nil when the locations cannot be loaded.
func (h *Hub) GetLocationData(ctx context.Context) domain.LocationMap {
	defer h.observe(MethodGetLocationData, h.clock.Now())

	locations, err := h.gateway.LoadLocations(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load location data", "error", err)
		return nil
	}
	return locations
}

// DataUpdateFromClient persists a batch of updates and, once they are applied,
// invalidates the cache and sends the batch unchanged to every registered
// session, the sender included. A nil batch or a persistence failure leaves
// everything untouched.
func (h *Hub) DataUpdateFromClient(ctx context.Context, caller domain.Identity, updates []domain.EmployeeStatusUpdate) {
	defer h.observe(MethodDataUpdateFromClient, h.clock.Now())

	if updates == nil {
		h.countUpdate("null")
		slog.WarnContext(ctx, "Ignoring null update list", "client_id", caller)
		return
	}

	if err := h.gateway.ApplyUpdates(ctx, updates); err != nil {
		h.countUpdate("rejected")
		level := slog.LevelError
		if errors.Is(err, domain.ErrEmployeeNotFound) || errors.Is(err, domain.ErrInvalidUpdate) || errors.Is(err, domain.ErrLocationNotFound) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "Update rejected", "client_id", caller, "updates", len(updates), "error", err)
		return
	}
	h.countUpdate("accepted")

	h.state.Cache.Invalidate()
	result := h.state.Registry.Broadcast(ctx, domain.ClientDataUpdate(updates))
	slog.InfoContext(ctx, "Update applied", "client_id", caller, "updates", len(updates), "delivered", result.Delivered, "failed", result.Failed)

	if h.relay != nil {
		if err := h.relay.PublishUpdates(ctx, updates); err != nil {
			slog.WarnContext(ctx, "Failed to relay update to other instances", "error", err)
		}
	}
}

// ApplyRemoteUpdates handles a batch already persisted by another instance:
// the local cache is invalidated and the batch is sent to local sessions.
func (h *Hub) ApplyRemoteUpdates(ctx context.Context, updates []domain.EmployeeStatusUpdate) {
	if updates == nil {
		return
	}
	h.countUpdate("remote")

	h.state.Cache.Invalidate()
	result := h.state.Registry.Broadcast(ctx, domain.ClientDataUpdate(updates))
	slog.DebugContext(ctx, "Relayed update delivered", "updates", len(updates), "delivered", result.Delivered, "failed", result.Failed)
}

func (h *Hub) countUpdate(result string) {
	if h.metrics != nil {
		h.metrics.Updates.WithLabelValues(result).Inc()
	}
}

func (h *Hub) observe(method string, start time.Time) {
	if h.metrics != nil {
		h.metrics.RPCDuration.WithLabelValues(method).Observe(h.clock.Since(start).Seconds())
	}
}
