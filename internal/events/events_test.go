package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"decider/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() QuestionCreated {
	return QuestionCreated{
		Type:       TypeQuestionCreated,
		QuestionID: 12,
		CategoryID: 3,
		AuthorID:   7,
		PollItems:  2,
		CreatedAt:  time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC),
	}
}

func TestRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, QuestionsChannel)
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewRedisPublisher(rdb)
	require.NoError(t, pub.PublishQuestionCreated(ctx, sampleEvent()))

	select {
	case msg := <-sub.Channel():
		var got QuestionCreated
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, sampleEvent(), got)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestQuestionCreated_AnonymousOmitsAuthor(t *testing.T) {
	e := sampleEvent()
	e.AuthorID = 0
	e.IsAnonymous = true
	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "author_id")
}

type writerStub struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *writerStub) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *writerStub) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	stub := &writerStub{}
	pub := &KafkaPublisher{writer: stub}

	require.NoError(t, pub.PublishQuestionCreated(context.Background(), sampleEvent()))
	require.Len(t, stub.msgs, 1)
	assert.Equal(t, "12", string(stub.msgs[0].Key))
	assert.Equal(t, TypeQuestionCreated, string(stub.msgs[0].Headers[0].Value))

	stub.err = errors.New("broker down")
	assert.Error(t, pub.PublishQuestionCreated(context.Background(), sampleEvent()))

	require.NoError(t, pub.Close())
	assert.True(t, stub.closed)
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	p, err := New(&config.Config{EventsBackend: config.EventsBackendRedis}, rdb)
	require.NoError(t, err)
	assert.Equal(t, config.EventsBackendRedis, p.Backend())

	p, err = New(&config.Config{EventsBackend: config.EventsBackendRedis}, nil)
	require.NoError(t, err)
	assert.Equal(t, config.EventsBackendNone, p.Backend())

	p, err = New(&config.Config{EventsBackend: config.EventsBackendKafka, KafkaBrokers: "localhost:9092", KafkaTopic: "questions"}, nil)
	require.NoError(t, err)
	assert.Equal(t, config.EventsBackendKafka, p.Backend())
	require.NoError(t, p.Close())

	_, err = New(&config.Config{EventsBackend: config.EventsBackendKafka}, nil)
	assert.Error(t, err)

	_, err = New(&config.Config{EventsBackend: "smoke-signals"}, nil)
	assert.Error(t, err)
}
