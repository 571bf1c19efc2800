package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"chakastays/internal/app/dataservice"
	domainauth "chakastays/internal/domain/auth"
	domainbooking "chakastays/internal/domain/booking"
	domainfavorites "chakastays/internal/domain/favorites"
	domainnotifications "chakastays/internal/domain/notifications"
	domainproperties "chakastays/internal/domain/properties"
	domainuser "chakastays/internal/domain/user"
)

// Service is the Mongo-backed data service. Guarded procedures run in
// multi-document transactions and need a replica set.
type Service struct {
	client        *Client
	properties    *PropertyStore
	bookings      *BookingStore
	blocks        *BlockStore
	notifications *NotificationStore
	favorites     *FavoriteStore
	users         *UserStore
	sessions      *SessionStore
}

func NewService(client *Client) *Service {
	db := client.DB
	return &Service{
		client:        client,
		properties:    NewPropertyStore(db),
		bookings:      NewBookingStore(db),
		blocks:        NewBlockStore(db),
		notifications: NewNotificationStore(db),
		favorites:     NewFavoriteStore(db),
		users:         NewUserStore(db),
		sessions:      NewSessionStore(db),
	}
}

func (s *Service) Properties() dataservice.Properties { return s.properties }

func (s *Service) Bookings() dataservice.Bookings { return s.bookings }

func (s *Service) Blocks() dataservice.Blocks { return guardedBlocks{s} }

func (s *Service) Notifications() domainnotifications.Repository { return s.notifications }

func (s *Service) Favorites() domainfavorites.Repository { return s.favorites }

func (s *Service) Users() domainuser.Repository { return s.users }

func (s *Service) Sessions() domainauth.SessionStore { return s.sessions }

func (s *Service) Procedures() dataservice.Procedures { return procedures{s} }

func (s *Service) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func withTransaction(ctx context.Context, db *mongo.Database, fn func(sc mongo.SessionContext) error) error {
	session, err := db.Client().StartSession()
	if err != nil {
		return translate(err, dataservice.ErrNotFound)
	}
	defer session.EndSession(ctx)
	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, opts)
	return err
}

type guardedBlocks struct{ s *Service }

func (g guardedBlocks) ByID(ctx context.Context, id domainbooking.BlockID) (*domainbooking.BlockedDate, error) {
	return g.s.blocks.ByID(ctx, id)
}

func (g guardedBlocks) ActiveByProperty(ctx context.Context, propertyID domainproperties.PropertyID, today time.Time) ([]*domainbooking.BlockedDate, error) {
	return g.s.blocks.ActiveByProperty(ctx, propertyID, today)
}

func (g guardedBlocks) Insert(ctx context.Context, actor dataservice.Actor, block *domainbooking.BlockedDate, policy dataservice.BlockOverlapPolicy) error {
	if block == nil {
		return domainbooking.ErrBlockIDMissing
	}
	return withTransaction(ctx, g.s.client.DB, func(sc mongo.SessionContext) error {
		if _, err := g.s.ownedProperty(sc, actor, block.PropertyID); err != nil {
			return err
		}
		if policy != dataservice.BlockAllow {
			taken, err := g.s.bookingOverlaps(sc, block.PropertyID, block.Range.Start, block.Range.End)
			if err != nil {
				return err
			}
			if taken {
				return dataservice.ErrDatesTaken
			}
		}
		_, err := g.s.blocks.col.InsertOne(sc, newBlockDocument(block))
		return translate(err, domainbooking.ErrBlockNotFound)
	})
}

func (g guardedBlocks) Delete(ctx context.Context, actor dataservice.Actor, propertyID domainproperties.PropertyID, id domainbooking.BlockID) error {
	return withTransaction(ctx, g.s.client.DB, func(sc mongo.SessionContext) error {
		if _, err := g.s.ownedProperty(sc, actor, propertyID); err != nil {
			return err
		}
		res, err := g.s.blocks.col.DeleteOne(sc, bson.M{"_id": string(id), "property_id": string(propertyID)})
		if err != nil {
			return translate(err, domainbooking.ErrBlockNotFound)
		}
		if res.DeletedCount == 0 {
			return dataservice.NotFound(domainbooking.ErrBlockNotFound)
		}
		return nil
	})
}

func (s *Service) ownedProperty(ctx context.Context, actor dataservice.Actor, id domainproperties.PropertyID) (*domainproperties.Property, error) {
	p, err := s.properties.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(domainproperties.HostID(actor.UserID)) {
		return nil, dataservice.ErrForbidden
	}
	return p, nil
}

// bookingOverlaps reports a non-cancelled booking intersecting [start, end).
func (s *Service) bookingOverlaps(ctx context.Context, propertyID domainproperties.PropertyID, start, end time.Time) (bool, error) {
	filter := bson.M{
		"property_id": string(propertyID),
		"status":      bson.M{"$ne": string(domainbooking.StatusCancelled)},
		"range.start": bson.M{"$lt": end.UTC()},
		"range.end":   bson.M{"$gt": start.UTC()},
	}
	return exists(ctx, s.bookings.col, filter)
}

func (s *Service) blockOverlaps(ctx context.Context, propertyID domainproperties.PropertyID, start, end time.Time) (bool, error) {
	filter := bson.M{
		"property_id": string(propertyID),
		"range.start": bson.M{"$lt": end.UTC()},
		"range.end":   bson.M{"$gt": start.UTC()},
	}
	return exists(ctx, s.blocks.col, filter)
}

func exists(ctx context.Context, col *mongo.Collection, filter bson.M) (bool, error) {
	n, err := col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, translate(err, dataservice.ErrNotFound)
	}
	return n > 0, nil
}

// activeUser loads the actor from the store; roles are never taken from the caller.
func (s *Service) activeUser(ctx context.Context, actor dataservice.Actor) (*domainuser.User, error) {
	if actor.UserID == "" {
		return nil, dataservice.ErrForbidden
	}
	u, err := s.users.ByID(ctx, domainuser.ID(actor.UserID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dataservice.ErrForbidden, err)
	}
	if u.Blocked {
		return nil, dataservice.ErrForbidden
	}
	return u, nil
}

func (s *Service) requireAdmin(ctx context.Context, actor dataservice.Actor) error {
	u, err := s.activeUser(ctx, actor)
	if err != nil {
		return err
	}
	if !u.IsAdmin() {
		return dataservice.ErrForbidden
	}
	return nil
}

var _ dataservice.Service = (*Service)(nil)
