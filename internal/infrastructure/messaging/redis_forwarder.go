package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
)

// DefaultEventChannel is the Redis channel domain events are mirrored to.
const DefaultEventChannel = "dojo:events"

// Publisher is the part of *redis.Client used by the forwarder.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisForwarder mirrors events published on the local bus to a Redis channel
// as shared.EventEnvelope JSON, so other processes can react to promotions and imports.
type RedisForwarder struct {
	client  Publisher
	channel string
	timeout time.Duration
}

// NewRedisForwarder creates a forwarder. An empty channel uses DefaultEventChannel.
func NewRedisForwarder(client Publisher, channel string) *RedisForwarder {
	if channel == "" {
		channel = DefaultEventChannel
	}
	return &RedisForwarder{client: client, channel: channel, timeout: 2 * time.Second}
}

// Handle is a shared.EventHandler; register it with SubscribeAll.
func (f *RedisForwarder) Handle(event shared.Event) error {
	env, err := shared.NewEventEnvelope(uuid.NewString(), event)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	if err := f.client.Publish(ctx, f.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.EventType(), f.channel, err)
	}
	return nil
}
