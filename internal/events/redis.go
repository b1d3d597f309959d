package events

import (
	"context"
	"encoding/json"
	"fmt"

	"decider/internal/config"

	"github.com/redis/go-redis/v9"
)

// QuestionsChannel is the Redis pub/sub channel for question events.
const QuestionsChannel = "questions:events"

// RedisPublisher publishes events on a Redis pub/sub channel.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher creates a publisher on the given client.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) PublishQuestionCreated(ctx context.Context, e QuestionCreated) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, QuestionsChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", QuestionsChannel, err)
	}
	return nil
}

func (p *RedisPublisher) Backend() string { return config.EventsBackendRedis }

// Close is a no-op; the client is shared and closed by its owner.
func (p *RedisPublisher) Close() error { return nil }
