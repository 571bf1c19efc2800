package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// ConsumerConfig starts new groups at the oldest offset so events published
// before the first deploy of a consumer are still applied.
func ConsumerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true
	return cfg
}

// Consumer drives a consumer group until its context ends.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger
	// Backoff separates attempts after a failed Consume call.
	Backoff time.Duration
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if handler == nil {
		return nil, errors.New("kafka: message handler required")
	}
	if cfg == nil {
		cfg = ConsumerConfig()
	}
	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka: join group %s: %w", groupID, err)
	}
	return &Consumer{group: group, handler: handler, logger: logger, Backoff: time.Second}, nil
}

// Run rejoins the group after every rebalance. Broker errors are logged and
// retried; only context cancellation or Close ends it.
func (c *Consumer) Run(ctx context.Context, topics []string) error {
	go c.drainErrors(ctx)
	claims := claimHandler{handler: c.handler, logger: c.logger}
	for {
		err := c.group.Consume(ctx, topics, claims)
		switch {
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			c.warn("kafka consume failed", "topics", topics, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.Backoff):
			}
		}
	}
}

func (c *Consumer) Close() error { return c.group.Close() }

func (c *Consumer) drainErrors(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-c.group.Errors():
			if !ok {
				return
			}
			c.warn("kafka group error", "error", err)
		}
	}
}

func (c *Consumer) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

type claimHandler struct {
	handler MessageHandler
	logger  *slog.Logger
}

func (claimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim leaves a failed message unmarked. The offset then stays
// behind it and the message is replayed after the next rebalance; the inbox
// keeps already applied events from running twice.
func (h claimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handler.Handle(sess.Context(), msg); err != nil {
				if h.logger != nil {
					h.logger.Warn("event handling failed", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
				}
				continue
			}
			sess.MarkMessage(msg, "")
		}
	}
}
