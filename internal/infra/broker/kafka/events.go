package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"

	"chakastays/internal/infra/outbox"
)

// Subscriber receives decoded domain events.
type Subscriber interface {
	HandleEvent(ctx context.Context, name string, payload []byte) error
}

// Inbox remembers which events a consumer already applied.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// EventHandler decodes CloudEvents messages and hands them to Subscriber once.
type EventHandler struct {
	Subscriber Subscriber
	Inbox      Inbox
	Logger     *slog.Logger
}

func (h EventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	env, err := outbox.DecodeEnvelope(msg.Value)
	if err != nil {
		// A poison message cannot succeed on retry; drop it.
		if h.Logger != nil {
			h.Logger.Error("dropping undecodable event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
		return nil
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, env.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	if h.Subscriber == nil {
		return errors.New("kafka: event subscriber missing")
	}
	if err := h.Subscriber.HandleEvent(ctx, env.EventName(), env.Data); err != nil {
		return err
	}
	if h.Inbox != nil {
		return h.Inbox.Mark(ctx, env.ID)
	}
	return nil
}

// Topics lists the aggregate topics the notification consumer subscribes to.
func Topics(prefix string) []string {
	return []string{prefix + "booking.events.v1", prefix + "property.events.v1"}
}

var _ MessageHandler = EventHandler{}
