package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ChannelPrefix is the per-tenant redis channel namespace. Consumers
// subscribe to their tenant's channel and filter by selector.
const ChannelPrefix = "authz.events."

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// RedisPublisher publishes events as JSON on per-tenant redis channels.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher returns a Publisher backed by redis pub/sub.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish sends the event on the tenant's channel.
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	if err := p.client.Publish(ctx, ChannelPrefix+ev.Tenant, payload).Err(); err != nil {
		return fmt.Errorf("events: publish: %w", err)
	}
	return nil
}

var _ Publisher = (*RedisPublisher)(nil)

// Republisher schedules a failed event for asynchronous redelivery.
type Republisher interface {
	Enqueue(ctx context.Context, ev Event) error
}
