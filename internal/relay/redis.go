package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"pos-relay/models"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events with PUBLISH on a single channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Name() string {
	return "redis"
}

func (p *RedisPublisher) Publish(ctx context.Context, msg models.Message) error {
	body, err := json.Marshal(NewEnvelope(msg))
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, string(body)).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", p.channel, err)
	}
	return nil
}
