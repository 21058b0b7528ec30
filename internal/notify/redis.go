package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisChannel = "asamblea.changes"

// envelope wraps a Change with the publishing instance so a bridge can ignore
// its own messages coming back from Redis.
type envelope struct {
	Origin string `json:"origin"`
	Change Change `json:"change"`
}

// RedisBridge republishes local changes to a Redis channel and re-ingests
// remote ones, so multiple instances share one logical change feed. The local
// Bus stays authoritative; the bridge is best-effort.
type RedisBridge struct {
	bus    *Bus
	client *redis.Client
	origin string
	log    *slog.Logger
}

func NewRedisBridge(bus *Bus, client *redis.Client, log *slog.Logger) *RedisBridge {
	return &RedisBridge{
		bus:    bus,
		client: client,
		origin: uuid.NewString(),
		log:    log,
	}
}

// Broadcast sends a local change to the shared channel. Failures are logged
// and swallowed: remote instances will catch up on the next change.
func (b *RedisBridge) Broadcast(ctx context.Context, c Change) {
	payload, err := json.Marshal(envelope{Origin: b.origin, Change: c})
	if err != nil {
		b.log.Error("marshal change envelope", "err", err)
		return
	}
	if err := b.client.Publish(ctx, redisChannel, payload).Err(); err != nil {
		b.log.Warn("broadcast change", "err", err, "kind", c.Kind, "key", c.Key)
	}
}

// Run subscribes to the shared channel and feeds remote changes into the
// local bus until the context is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, redisChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("drop malformed change message", "err", err)
				continue
			}
			if env.Origin == b.origin {
				continue
			}
			b.bus.publishLocal(env.Change)
		}
	}
}
