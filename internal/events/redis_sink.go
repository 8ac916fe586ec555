package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes events on Redis pub/sub channels, one channel
// per event name under a common prefix.
type RedisSink struct {
	client *redis.Client
	prefix string
}

// NewRedisSink creates a sink over an initialized Redis client.
func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{
		client: client,
		prefix: "fulfillment",
	}
}

// Publish sends the subject id on the event's channel.
func (r *RedisSink) Publish(ctx context.Context, event, subjectID string) error {
	channel := fmt.Sprintf("%s:%s", r.prefix, event)
	if err := r.client.Publish(ctx, channel, subjectID).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event, err)
	}
	return nil
}
