package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decider_redis_errors_total",
		Help: "Total number of failed Redis commands",
	}, []string{"command"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "decider_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// FeedRequests counts assembled feed pages by tab.
	FeedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decider_feed_requests_total",
		Help: "Total number of feed pages assembled, by tab",
	}, []string{"tab"})

	// PollItemBatchSize records how many polls one batched poll-item query covered.
	PollItemBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "decider_poll_item_batch_polls",
		Help:    "Number of polls fetched by a single batched poll-item query",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})

	// QuestionsCreated counts committed question creations.
	QuestionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "decider_questions_created_total",
		Help: "Total number of questions created",
	})

	// EventPublishFailures counts question events that could not be published.
	EventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decider_event_publish_failures_total",
		Help: "Total number of question events that failed to publish, by backend",
	}, []string{"backend"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
