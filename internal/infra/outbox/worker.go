package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appoutbox "chakastays/internal/app/outbox"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// ClaimStore is the part of Store the worker drives.
type ClaimStore interface {
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

// Worker polls the outbox and publishes CloudEvents to the broker.
type Worker struct {
	Store       ClaimStore
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	// Batch bounds how many records one tick publishes.
	Batch  int
	Logger *slog.Logger
	Now    func() time.Time
}

// Run publishes until ctx ends. Store errors are logged and retried on the next tick.
func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Drain(ctx); err != nil && ctx.Err() == nil && w.Logger != nil {
				w.Logger.Warn("outbox tick failed", "worker_id", w.ID, "error", err)
			}
		}
	}
}

// Drain publishes due records until none remain or the batch is spent.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	published := 0
	for i := 0; i < w.batch(); i++ {
		doc, err := w.Store.Claim(ctx, w.ID)
		if err != nil {
			return published, err
		}
		if doc == nil {
			return published, nil
		}
		ok, err := w.publish(ctx, doc)
		if err != nil {
			return published, err
		}
		if ok {
			published++
		}
	}
	return published, nil
}

func (w *Worker) publish(ctx context.Context, doc *EventDocument) (bool, error) {
	record := doc.Record()
	payload, headers, err := w.envelope(record)
	if err == nil {
		err = w.Producer.Publish(ctx, record.Topic(w.TopicPrefix), record.Aggregate, payload, headers)
	}
	if err != nil {
		if w.Logger != nil {
			w.Logger.Warn("outbox publish failed", "event_id", doc.ID, "event", doc.Name, "attempts", doc.Attempts+1, "error", err)
		}
		return false, w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error())
	}
	return true, w.Store.MarkSent(ctx, doc.ID)
}

func (w *Worker) envelope(record appoutbox.EventRecord) ([]byte, map[string]string, error) {
	if !json.Valid(record.Payload) {
		return nil, nil, ErrMalformedEnvelope
	}
	env := Envelope{
		SpecVersion:     specVersion,
		ID:              record.ID,
		Type:            record.Name + typeVersionSuffix,
		Source:          w.source(),
		Subject:         record.Aggregate,
		Time:            record.OccurredAt,
		DataContentType: "application/json",
		Data:            json.RawMessage(record.Payload),
		TraceParent:     record.Headers["traceparent"],
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{"content-type": ContentType}
	for k, v := range record.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) batch() int {
	if w.Batch <= 0 {
		return 50
	}
	return w.Batch
}

func (w *Worker) nextRetry(attempts int) time.Time {
	now := time.Now()
	if w.Now != nil {
		now = w.Now()
	}
	if attempts < len(w.Backoff) {
		return now.Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return now.Add(w.Backoff[len(w.Backoff)-1])
	}
	return now.Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://chakastays"
}
