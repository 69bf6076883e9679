package registry

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/pscheid92/signboard/internal/adapter/metrics"
	"github.com/pscheid92/signboard/internal/domain"
)

// UnauthorizedPolicy decides what happens when a client invokes a
// controller-only command. It must not report anything back to the caller.
type UnauthorizedPolicy func(ctx context.Context, identity domain.Identity, command string)

// RejectSilently logs the attempt and drops it. The caller learns nothing about
// the registry or about its own privileges.
func RejectSilently(ctx context.Context, identity domain.Identity, command string) {
	slog.WarnContext(ctx, "Rejected controller command from client", "client_id", identity, "command", command)
}

// BroadcastResult summarizes one fan-out.
type BroadcastResult struct {
	Delivered int
	Failed    int
}

type entry struct {
	clientID int
	session  domain.Session
}

type Registry struct {
	mu             sync.RWMutex
	sessions       map[int]domain.Session
	onUnauthorized UnauthorizedPolicy
	metrics        *metrics.HubMetrics
}

type Option func(*Registry)

// WithUnauthorizedPolicy replaces RejectSilently.
func WithUnauthorizedPolicy(policy UnauthorizedPolicy) Option {
	return func(r *Registry) { r.onUnauthorized = policy }
}

func WithMetrics(m *metrics.HubMetrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func New(opts ...Option) *Registry {
	r := &Registry{
		sessions:       make(map[int]domain.Session),
		onUnauthorized: RejectSilently,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open registers the session for a client and acknowledges it with ClientConnected.
// The acknowledgment is queued before the entry becomes visible to Broadcast,
// so it is always the session's first notification. The controller is logged
// and never registered.
func (r *Registry) Open(ctx context.Context, identity domain.Identity, session domain.Session) {
	if identity.IsController() {
		slog.InfoContext(ctx, "Controller connected", "session_id", session.ID())
		return
	}
	r.register(ctx, identity, session, domain.ClientConnected())
	slog.InfoContext(ctx, "Client connected", "client_id", identity, "session_id", session.ID())
}

// Resume re-registers a client after a transient transport interruption and
// acknowledges it with ClientReconnected.
func (r *Registry) Resume(ctx context.Context, identity domain.Identity, session domain.Session) {
	if identity.IsController() {
		slog.InfoContext(ctx, "Controller reconnected", "session_id", session.ID())
		return
	}
	r.register(ctx, identity, session, domain.ClientReconnected())
	slog.InfoContext(ctx, "Client reconnected", "client_id", identity, "session_id", session.ID())
}

// Close removes a client's entry; closing an unknown identity is a no-op. When
// the controller goes away every registered session is told to shut down.
func (r *Registry) Close(ctx context.Context, identity domain.Identity, session domain.Session) {
	if identity.IsController() {
		slog.InfoContext(ctx, "Controller disconnected", "session_id", session.ID())
		r.Broadcast(ctx, domain.Shutdown())
		return
	}

	clientID, _ := identity.ClientID()

	r.mu.Lock()
	_, existed := r.sessions[clientID]
	delete(r.sessions, clientID)
	remaining := len(r.sessions)
	r.mu.Unlock()

	r.setRegistered(remaining)
	slog.InfoContext(ctx, "Client disconnected", "client_id", identity, "session_id", session.ID(), "was_registered", existed)
}

// Shutdown broadcasts Shutdown when invoked by the controller. Any other caller
// is handed to the unauthorized policy.
func (r *Registry) Shutdown(ctx context.Context, identity domain.Identity) {
	if !identity.IsController() {
		if r.metrics != nil {
			r.metrics.UnauthorizedCommands.WithLabelValues("ShutDown").Inc()
		}
		r.onUnauthorized(ctx, identity, "ShutDown")
		return
	}

	slog.InfoContext(ctx, "Controller sends shutdown order", "clients", r.Len())
	r.Broadcast(ctx, domain.Shutdown())
}

// Broadcast delivers n to every registered session. A failed delivery is logged
// and does not stop delivery to the remaining sessions.
func (r *Registry) Broadcast(ctx context.Context, n domain.Notification) BroadcastResult {
	var result BroadcastResult

	for _, e := range r.snapshot() {
		if err := e.session.Notify(n); err != nil {
			result.Failed++
			if r.metrics != nil {
				r.metrics.DeliveryFaults.Inc()
			}
			slog.WarnContext(ctx, "Failed to deliver notification",
				"client_id", e.clientID,
				"session_id", e.session.ID(),
				"method", n.Method,
				"error", err,
			)
			continue
		}
		result.Delivered++
	}

	if r.metrics != nil {
		r.metrics.Broadcasts.WithLabelValues(n.Method).Inc()
	}
	slog.DebugContext(ctx, "Broadcast complete", "method", n.Method, "delivered", result.Delivered, "failed", result.Failed)
	return result
}

// Lookup returns the live session of a client.
func (r *Registry) Lookup(clientID int) (domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[clientID]
	return s, ok
}

// Online returns the registered client ids in ascending order.
func (r *Registry) Online() []int {
	r.mu.RLock()
	ids := make([]int, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// register queues ack under the write lock. Session.Notify only enqueues, so
// holding the lock across it is safe.
func (r *Registry) register(ctx context.Context, identity domain.Identity, session domain.Session, ack domain.Notification) {
	clientID, _ := identity.ClientID()

	r.mu.Lock()
	ackErr := session.Notify(ack)
	r.sessions[clientID] = session
	total := len(r.sessions)
	r.mu.Unlock()

	r.setRegistered(total)

	if err := ackErr; err != nil {
		if r.metrics != nil {
			r.metrics.DeliveryFaults.Inc()
		}
		slog.WarnContext(ctx, "Failed to acknowledge session", "client_id", identity, "method", ack.Method, "error", err)
	}
}

// snapshot copies the entries so delivery can run without the lock.
func (r *Registry) snapshot() []entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]entry, 0, len(r.sessions))
	for id, s := range r.sessions {
		entries = append(entries, entry{clientID: id, session: s})
	}
	return entries
}

func (r *Registry) setRegistered(n int) {
	if r.metrics != nil {
		r.metrics.RegisteredClients.Set(float64(n))
	}
}
