// Package outbox is the write side of event delivery. Handlers append the
// events their aggregates raised once the data service has committed; an
// Outbox implementation decides when and how they leave the process.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"chakastays/internal/domain/shared/events"
)

// SchemaVersion is appended to event types and topic names.
const SchemaVersion = "v1"

// EventRecord is one serialized domain event waiting to be published.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Topic groups events by aggregate kind: booking.created goes to
// booking.events.v1.
func (r EventRecord) Topic(prefix string) string {
	kind, _, _ := strings.Cut(r.Name, ".")
	if kind == "" {
		kind = r.Name
	}
	return prefix + kind + ".events." + SchemaVersion
}

type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

// JSONEventEncoder marshals the event struct as the payload.
type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, fmt.Errorf("outbox: encode %s: %w", ev.EventName(), err)
	}
	newID := e.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}
	return EventRecord{
		ID:         newID(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{"aggregate-id": ev.AggregateID()},
	}, nil
}

// Recorder is implemented by aggregates embedding events.EventRecorder.
type Recorder interface {
	PendingEvents() []events.DomainEvent
	ClearEvents()
}

// Drain appends the pending events of every recorder to box, in order, and
// clears each recorder once its events are in. A failure leaves the
// remaining recorders untouched.
func Drain(ctx context.Context, box Outbox, encoder EventEncoder, recorders ...Recorder) error {
	if box == nil {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, r := range recorders {
		if r == nil {
			continue
		}
		for _, ev := range r.PendingEvents() {
			rec, err := encoder.Encode(ev)
			if err != nil {
				return err
			}
			if err := box.Add(ctx, rec); err != nil {
				return fmt.Errorf("outbox: add %s: %w", rec.Name, err)
			}
		}
		r.ClearEvents()
	}
	return nil
}
