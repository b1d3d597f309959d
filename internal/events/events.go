// Package events publishes domain events about questions to a message backend.
package events

import (
	"context"
	"fmt"
	"time"

	"decider/internal/config"

	"github.com/redis/go-redis/v9"
)

// TypeQuestionCreated is the event type emitted after a question commits.
const TypeQuestionCreated = "question.created"

// QuestionCreated describes a committed question. AuthorID is omitted for
// anonymous questions.
type QuestionCreated struct {
	Type        string    `json:"type"`
	QuestionID  uint      `json:"question_id"`
	CategoryID  uint      `json:"category_id"`
	AuthorID    uint      `json:"author_id,omitempty"`
	IsAnonymous bool      `json:"is_anonymous"`
	PollItems   int       `json:"poll_items"`
	CreatedAt   time.Time `json:"created_at"`
}

// Publisher delivers question events.
type Publisher interface {
	PublishQuestionCreated(ctx context.Context, e QuestionCreated) error
	Backend() string
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishQuestionCreated(context.Context, QuestionCreated) error { return nil }
func (NopPublisher) Backend() string                                               { return config.EventsBackendNone }
func (NopPublisher) Close() error                                                  { return nil }

// New builds the publisher selected by EVENTS_BACKEND. The Redis backend
// degrades to NopPublisher when no client is available.
func New(cfg *config.Config, rdb *redis.Client) (Publisher, error) {
	switch cfg.EventsBackend {
	case config.EventsBackendKafka:
		return NewKafkaPublisher(cfg.Brokers(), cfg.KafkaTopic)
	case config.EventsBackendRedis, "":
		if rdb == nil {
			return NopPublisher{}, nil
		}
		return NewRedisPublisher(rdb), nil
	case config.EventsBackendNone:
		return NopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unsupported events backend %q", cfg.EventsBackend)
	}
}
