package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	pending []Message
	sent    []string
	failed  map[string]int
}

func (s *fakeStore) Claim(_ context.Context, _ string, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.pending)
	if limit < n {
		n = limit
	}
	out := s.pending[:n]
	s.pending = s.pending[n:]
	return out, nil
}

func (s *fakeStore) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, id)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id string, _ time.Time, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = map[string]int{}
	}
	s.failed[id]++
	return nil
}

type published struct {
	topic, key string
	payload    []byte
	headers    map[string]string
}

type fakeProducer struct {
	out    []published
	failOn string
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if key == p.failOn {
		return errors.New("kafka: leader not available")
	}
	p.out = append(p.out, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func TestProcessOncePublishesCloudEvents(t *testing.T) {
	store := &fakeStore{pending: []Message{
		{ID: "e1", Name: "booking.confirmed", Payload: []byte(`{"booking_id":"b-1"}`), Aggregate: "b-1", Headers: map[string]string{"request_id": "r-1"}},
		{ID: "e2", Name: "booking.rejected", Payload: []byte(`{"booking_id":"b-2"}`), Aggregate: "b-2"},
	}}
	producer := &fakeProducer{failOn: "b-2"}
	w := &Worker{Store: store, Producer: producer, TopicPrefix: "dev.", ID: "w-1"}

	sent, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"e1"}, store.sent)
	assert.Equal(t, 1, store.failed["e2"])

	require.Len(t, producer.out, 1)
	msg := producer.out[0]
	assert.Equal(t, "dev.booking.events.v1", msg.topic)
	assert.Equal(t, "b-1", msg.key)
	assert.Equal(t, "application/cloudevents+json", msg.headers["content-type"])
	assert.Equal(t, "r-1", msg.headers["request_id"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &evt))
	assert.Equal(t, "booking.confirmed.v1", evt["type"])
	assert.Equal(t, "e1", evt["id"])
	assert.Equal(t, "b-1", evt["data"].(map[string]any)["booking_id"])
}

func TestRunWakesOnSignal(t *testing.T) {
	store := &fakeStore{pending: []Message{{ID: "e1", Name: "booking.requested", Payload: []byte(`{}`), Aggregate: "b-1"}}}
	wake := make(chan struct{}, 1)
	w := &Worker{Store: store, Producer: &fakeProducer{}, Wake: wake, Interval: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	wake <- struct{}{}

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.sent) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
