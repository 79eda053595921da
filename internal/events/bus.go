// Package events implements the Event Bus (spec.md §4.H): a write-only,
// typed fan-out of session activity over Redis pub/sub, one channel per
// session code. Nothing in the core ever subscribes back to its own writes;
// the bus exists for dashboards and external observers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/haasonsaas/nexus/pkg/models"
)

func channelName(session models.SessionCode) string {
	return fmt.Sprintf("nexus:session:%s", session)
}

// Bus publishes Events for a session to any subscriber listening on that
// session's Redis channel.
type Bus struct {
	client *redis.Client
	logger *slog.Logger
}

// NewBus builds a Bus over an existing Redis client.
func NewBus(client *redis.Client, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default().With("component", "events")
	}
	return &Bus{client: client, logger: logger}
}

// Publish fans e out on e.SessionCode's channel. Publish failures are logged
// and swallowed: the Event Bus is best-effort observability, never a path an
// engine or controller operation can fail on (§4.H).
func (b *Bus) Publish(ctx context.Context, e models.Event) {
	if b == nil || b.client == nil {
		return
	}
	payload, err := json.Marshal(e)
	if err != nil {
		b.logger.Warn("marshal event", "type", e.Type, "session", e.SessionCode, "error", err)
		return
	}
	if err := b.client.Publish(ctx, channelName(e.SessionCode), payload).Err(); err != nil {
		b.logger.Warn("publish event", "type", e.Type, "session", e.SessionCode, "error", err)
	}
}

// Subscribe returns a channel of decoded Events for session, for dashboards
// and tests. The returned subscription must be closed by the caller via the
// returned close func once done.
func (b *Bus) Subscribe(ctx context.Context, session models.SessionCode) (<-chan models.Event, func()) {
	out := make(chan models.Event, 32)
	if b == nil || b.client == nil {
		close(out)
		return out, func() {}
	}

	pubsub := b.client.Subscribe(ctx, channelName(session))
	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var e models.Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					b.logger.Warn("decode event", "session", session, "error", err)
					continue
				}
				select {
				case out <- e:
				default:
					b.logger.Warn("event subscriber slow, dropping", "session", session, "type", e.Type)
				}
			}
		}
	}()

	return out, func() { _ = pubsub.Close() }
}
