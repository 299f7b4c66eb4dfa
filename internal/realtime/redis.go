package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher forwards fan-out to Redis pub/sub so other service
// instances and gateways can relay it to their own clients
type RedisPublisher struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisPublisher creates a publisher on client. Channels are named prefix+topic.
func NewRedisPublisher(client *redis.Client, prefix string, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{
		client: client,
		prefix: prefix,
		logger: logger.With(zap.String("component", "redis_publisher")),
	}
}

// Channel returns the redis channel used for topic
func (p *RedisPublisher) Channel(topic string) string {
	return p.prefix + topic
}

// Publish implements Publisher
func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}

	receivers, err := p.client.Publish(ctx, p.Channel(topic), data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis channel %s: %w", p.Channel(topic), err)
	}

	p.logger.Debug("Published to redis",
		zap.String("channel", p.Channel(topic)),
		zap.Int64("receivers", receivers),
	)
	return nil
}
