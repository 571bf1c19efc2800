package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"chakastays/internal/app/dataservice"
	"chakastays/internal/app/middleware"
	appoutbox "chakastays/internal/app/outbox"
	"chakastays/internal/infra/broker/kafka"
	"chakastays/internal/infra/config"
	mongostore "chakastays/internal/infra/db/mongo"
	"chakastays/internal/infra/inbox"
	infraoutbox "chakastays/internal/infra/outbox"
	"chakastays/internal/infra/storage/memory"
	"chakastays/internal/infra/storage/s3"
)

const inboxRetention = 7 * 24 * time.Hour

// backend is the data service plus the event plumbing that goes with it.
type backend struct {
	Data        dataservice.Service
	Outbox      appoutbox.Outbox
	Idempotency middleware.IdempotencyStore
	// Background tasks run until the process context ends.
	Background map[string]func(context.Context) error

	subscribe func(kafka.Subscriber)
	closers   []func(context.Context) error
}

// Subscribe connects the notification trigger to whichever event path is active.
func (b *backend) Subscribe(sub kafka.Subscriber) {
	if b.subscribe != nil {
		b.subscribe(sub)
	}
}

func (b *backend) Close(ctx context.Context) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i](ctx)
	}
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.DataBackend {
	case config.BackendMongo:
		return openMongo(ctx, cfg, logger)
	default:
		if cfg.KafkaEnabled() {
			logger.Warn("kafka needs the mongo backend for its outbox; delivering events in-process")
		}
		return openMemory(cfg, logger), nil
	}
}

func openMemory(cfg config.Config, logger *slog.Logger) *backend {
	box := memory.NewOutbox(logger)
	return &backend{
		Data:        memory.NewStore(),
		Outbox:      box,
		Idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL, nil),
		subscribe:   func(sub kafka.Subscriber) { box.Subscribe(sub) },
	}
}

func openMongo(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	b := &backend{Data: mongostore.NewService(client)}
	b.closers = append(b.closers, client.Close)
	fail := func(err error) (*backend, error) {
		b.Close(context.Background())
		return nil, err
	}

	if err := client.EnsureIndexes(ctx); err != nil {
		return fail(err)
	}
	idem, err := mongostore.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		return fail(err)
	}
	b.Idempotency = idem

	if !cfg.KafkaEnabled() {
		box := memory.NewOutbox(logger)
		b.Outbox = box
		b.subscribe = func(sub kafka.Subscriber) { box.Subscribe(sub) }
		return b, nil
	}

	store, err := infraoutbox.NewStore(ctx, client.DB)
	if err != nil {
		return fail(err)
	}
	b.Outbox = store

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.ProducerConfig())
	if err != nil {
		return fail(fmt.Errorf("kafka producer: %w", err))
	}
	b.closers = append(b.closers, func(context.Context) error { return producer.Close() })

	hostname, _ := os.Hostname()
	worker := &infraoutbox.Worker{
		Store:       store,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		ID:          hostname,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}

	seen, err := inbox.NewStore(ctx, client.DB, cfg.KafkaGroupID, inboxRetention)
	if err != nil {
		return fail(err)
	}
	b.Background = map[string]func(context.Context) error{
		"outbox-worker": worker.Run,
	}
	b.subscribe = func(sub kafka.Subscriber) {
		handler := kafka.EventHandler{Subscriber: sub, Inbox: seen, Logger: logger}
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, handler, logger)
		if err != nil {
			logger.Error("kafka consumer unavailable; notifications will not be created", "error", err)
			return
		}
		if len(cfg.RetryBackoff) > 0 {
			consumer.Backoff = cfg.RetryBackoff[len(cfg.RetryBackoff)-1]
		}
		b.closers = append(b.closers, func(context.Context) error { return consumer.Close() })
		b.Background["notification-consumer"] = func(ctx context.Context) error {
			return consumer.Run(ctx, kafka.Topics(cfg.KafkaTopicPrefix))
		}
	}
	return b, nil
}

func openFiles(cfg config.Config, logger *slog.Logger) (dataservice.Files, error) {
	if cfg.S3Endpoint == "" {
		logger.Warn("S3 endpoint not configured; uploads are disabled")
		return s3.NoopUploader{}, nil
	}
	client, err := s3.NewClient(s3.Options{
		Endpoint:       cfg.S3Endpoint,
		PublicEndpoint: cfg.S3PublicEndpoint,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		UseSSL:         cfg.S3UseSSL,
		Buckets:        []string{cfg.S3PropertyBucket, cfg.S3AvatarBucket},
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return client, nil
}
