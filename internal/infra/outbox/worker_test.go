package outbox

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	docs   []*EventDocument
	sent   []string
	failed map[string]time.Time
}

func (s *fakeStore) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	if len(s.docs) == 0 {
		return nil, nil
	}
	doc := s.docs[0]
	s.docs = s.docs[1:]
	return doc, nil
}

func (s *fakeStore) MarkSent(ctx context.Context, id string) error {
	s.sent = append(s.sent, id)
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	if s.failed == nil {
		s.failed = map[string]time.Time{}
	}
	s.failed[id] = next
	return nil
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	fail bool
	out  []published
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.out = append(p.out, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func TestDrainPublishesCloudEvents(t *testing.T) {
	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{docs: []*EventDocument{
		{ID: "e1", Name: "booking.created", Aggregate: "b1", Payload: []byte(`{"booking_id":"b1"}`), OccurredAt: occurred},
	}}
	producer := &fakeProducer{}
	w := &Worker{Store: store, Producer: producer, TopicPrefix: "dev.", ID: "w1"}

	n, err := w.Drain(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("expected one published, got %d %v", n, err)
	}
	if len(producer.out) != 1 {
		t.Fatalf("expected one message, got %d", len(producer.out))
	}
	msg := producer.out[0]
	if msg.topic != "dev.booking.events.v1" || msg.key != "b1" {
		t.Fatalf("unexpected routing %q %q", msg.topic, msg.key)
	}
	if msg.headers["content-type"] != ContentType {
		t.Fatalf("expected cloudevents content type, got %v", msg.headers)
	}
	env, err := DecodeEnvelope(msg.payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.ID != "e1" || env.EventName() != "booking.created" || string(env.Data) != `{"booking_id":"b1"}` {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if !env.Time.Equal(occurred) {
		t.Fatalf("expected occurred time kept, got %s", env.Time)
	}
	if len(store.sent) != 1 || store.sent[0] != "e1" {
		t.Fatalf("expected e1 marked sent, got %v", store.sent)
	}
}

func TestDrainSchedulesRetryWithBackoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{docs: []*EventDocument{
		{ID: "e1", Name: "property.banned", Payload: []byte(`{}`), Attempts: 1},
		{ID: "e2", Name: "property.banned", Payload: []byte(`{}`), Attempts: 7},
	}}
	w := &Worker{
		Store:    store,
		Producer: &fakeProducer{fail: true},
		Backoff:  []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
		Now:      func() time.Time { return now },
	}
	if _, err := w.Drain(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.failed["e1"]; !got.Equal(now.Add(5 * time.Second)) {
		t.Fatalf("expected second backoff step, got %s", got)
	}
	if got := store.failed["e2"]; !got.Equal(now.Add(30 * time.Second)) {
		t.Fatalf("expected last backoff step, got %s", got)
	}
	if len(store.sent) != 0 {
		t.Fatalf("expected nothing sent, got %v", store.sent)
	}
}

func TestDrainRejectsMalformedPayload(t *testing.T) {
	store := &fakeStore{docs: []*EventDocument{{ID: "e1", Name: "booking.created", Payload: []byte("{oops")}}}
	producer := &fakeProducer{}
	w := &Worker{Store: store, Producer: producer}
	if _, err := w.Drain(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(producer.out) != 0 {
		t.Fatalf("expected nothing published")
	}
	if _, ok := store.failed["e1"]; !ok {
		t.Fatalf("expected e1 marked failed")
	}
}

func TestRunRequiresDependencies(t *testing.T) {
	if err := (&Worker{}).Run(context.Background()); !errors.Is(err, ErrWorkerNotConfigured) {
		t.Fatalf("expected ErrWorkerNotConfigured, got %v", err)
	}
}

func TestDecodeEnvelopeRejectsMissingFields(t *testing.T) {
	if _, err := DecodeEnvelope([]byte(`{"type":"booking.created.v1"}`)); !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("expected ErrMalformedEnvelope, got %v", err)
	}
	if _, err := DecodeEnvelope([]byte(`not json`)); !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("expected ErrMalformedEnvelope, got %v", err)
	}
}
