package memory

import (
	"context"
	"log/slog"
	"sync"

	appoutbox "chakastays/internal/app/outbox"
)

// Subscriber receives flushed events, e.g. the notification trigger.
type Subscriber interface {
	HandleEvent(ctx context.Context, name string, payload []byte) error
}

// Outbox keeps events until the command finishes and then delivers them in-process.
// Delivery failures are logged; the command has already committed.
type Outbox struct {
	mu          sync.Mutex
	records     []appoutbox.EventRecord
	subscribers []Subscriber
	logger      *slog.Logger
}

func NewOutbox(logger *slog.Logger, subscribers ...Subscriber) *Outbox {
	return &Outbox{subscribers: subscribers, logger: logger}
}

func (o *Outbox) Subscribe(sub Subscriber) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subscribers = append(o.subscribers, sub)
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	pending := o.records
	subs := append([]Subscriber(nil), o.subscribers...)
	o.records = nil
	o.mu.Unlock()

	for _, rec := range pending {
		for _, sub := range subs {
			if err := sub.HandleEvent(ctx, rec.Name, rec.Payload); err != nil {
				if o.logger != nil {
					o.logger.Warn("in-process event delivery failed", "event_id", rec.ID, "event", rec.Name, "error", err)
				}
			}
		}
	}
	return nil
}

// Pending reports buffered events not yet flushed.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]appoutbox.EventRecord(nil), o.records...)
}

var _ appoutbox.Outbox = (*Outbox)(nil)
