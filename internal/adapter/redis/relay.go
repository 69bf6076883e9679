package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pscheid92/signboard/internal/adapter/metrics"
	"github.com/pscheid92/signboard/internal/domain"
	"github.com/pscheid92/signboard/internal/platform/correlation"
	goredis "github.com/redis/go-redis/v9"
)

const updatesChannel = "signboard:updates"

// envelope is the relayed message. Origin lets an instance skip its own batches.
type envelope struct {
	Origin  string                        `json:"origin"`
	Updates []domain.EmployeeStatusUpdate `json:"updates"`
}

// RemoteApplier receives batches accepted by another instance.
type RemoteApplier interface {
	ApplyRemoteUpdates(ctx context.Context, updates []domain.EmployeeStatusUpdate)
}

// UpdateRelay publishes accepted updates for the other instances and applies
// theirs locally.
type UpdateRelay struct {
	rdb     *goredis.Client
	origin  string
	metrics *metrics.RelayMetrics
}

var _ domain.UpdateRelay = (*UpdateRelay)(nil)

// NewUpdateRelay creates a relay for the instance named origin. m may be nil.
func NewUpdateRelay(rdb *goredis.Client, origin string, m *metrics.RelayMetrics) *UpdateRelay {
	return &UpdateRelay{rdb: rdb, origin: origin, metrics: m}
}

func (r *UpdateRelay) PublishUpdates(ctx context.Context, updates []domain.EmployeeStatusUpdate) error {
	payload, err := json.Marshal(envelope{Origin: r.origin, Updates: updates})
	if err != nil {
		r.countPublished("error")
		return fmt.Errorf("failed to encode relayed updates: %w", err)
	}

	if err := r.rdb.Publish(ctx, updatesChannel, payload).Err(); err != nil {
		r.countPublished("error")
		return fmt.Errorf("failed to publish updates: %w", err)
	}
	r.countPublished("ok")
	return nil
}

// Start subscribes and applies batches from other instances until ctx is done.
func (r *UpdateRelay) Start(ctx context.Context, applier RemoteApplier) {
	pubsub := r.rdb.Subscribe(ctx, updatesChannel)
	defer func() { _ = pubsub.Close() }()

	slog.Info("Update relay subscribed", "channel", updatesChannel, "instance", r.origin)

	ch := pubsub.Channel()
	for {
		select {
		case msg := <-ch:
			if msg == nil {
				return
			}
			r.handleMessage(correlation.WithID(ctx, correlation.NewID()), applier, msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (r *UpdateRelay) handleMessage(ctx context.Context, applier RemoteApplier, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil || env.Updates == nil {
		r.countReceived("invalid")
		slog.WarnContext(ctx, "Ignoring malformed relayed update", "error", err)
		return
	}

	if env.Origin == r.origin {
		r.countReceived("own")
		return
	}

	r.countReceived("applied")
	slog.DebugContext(ctx, "Applying relayed update", "origin", env.Origin, "updates", len(env.Updates))
	applier.ApplyRemoteUpdates(ctx, env.Updates)
}

func (r *UpdateRelay) countPublished(result string) {
	if r.metrics != nil {
		r.metrics.Published.WithLabelValues(result).Inc()
	}
}

func (r *UpdateRelay) countReceived(outcome string) {
	if r.metrics != nil {
		r.metrics.Received.WithLabelValues(outcome).Inc()
	}
}
