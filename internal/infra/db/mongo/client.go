package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chakastays/internal/app/dataservice"
)

const (
	colProperties    = "properties"
	colBookings      = "bookings"
	colBlocks        = "blocked_dates"
	colNotifications = "notifications"
	colFavorites     = "favorites"
	colUsers         = "users"
	colSessions      = "sessions"
	colIdempotency   = "idempotency"
)

type Client struct {
	DB *mongo.Database
}

func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := m.Ping(ctx, nil); err != nil {
		_ = m.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes the stores rely on for lookups and uniqueness.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		colProperties: {
			{Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "banned", Value: 1}, {Key: "city_key", Value: 1}}},
		},
		colBookings: {
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "status", Value: 1}, {Key: "range.end", Value: 1}}},
			{Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colBlocks: {
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "range.end", Value: 1}}},
		},
		colNotifications: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colFavorites: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "property_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "property_id", Value: 1}}},
		},
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colSessions: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}
	for name, models := range specs {
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: indexes for %s: %w", name, err)
		}
	}
	return nil
}

// translate maps driver failures onto the data-service error vocabulary.
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return dataservice.NotFound(notFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", dataservice.ErrConflict, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
		return fmt.Errorf("%w: %w", dataservice.ErrUnavailable, err)
	default:
		return err
	}
}
