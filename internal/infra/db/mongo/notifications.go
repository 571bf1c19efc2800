package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chakastays/internal/app/dataservice"
	domainnotifications "chakastays/internal/domain/notifications"
)

type NotificationStore struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewNotificationStore(db *mongo.Database) *NotificationStore {
	return &NotificationStore{db: db, col: db.Collection(colNotifications)}
}

func (r *NotificationStore) ByUser(ctx context.Context, userID string) ([]domainnotifications.Notification, error) {
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, translate(err, domainnotifications.ErrNotificationNotFound)
	}
	var docs []notificationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err, domainnotifications.ErrNotificationNotFound)
	}
	out := make([]domainnotifications.Notification, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toNotification())
	}
	return out, nil
}

func (r *NotificationStore) MarkRead(ctx context.Context, userID string, id domainnotifications.NotificationID) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": string(id), "user_id": userID}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return translate(err, domainnotifications.ErrNotificationNotFound)
	}
	if res.MatchedCount == 0 {
		return dataservice.NotFound(domainnotifications.ErrNotificationNotFound)
	}
	return nil
}

// MarkAllRead runs in a transaction and aborts unless every id belongs to userID.
func (r *NotificationStore) MarkAllRead(ctx context.Context, userID string, ids []domainnotifications.NotificationID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[string(id)]; dup {
			continue
		}
		seen[string(id)] = struct{}{}
		raw = append(raw, string(id))
	}
	return withTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		res, err := r.col.UpdateMany(sc, bson.M{"_id": bson.M{"$in": raw}, "user_id": userID}, bson.M{"$set": bson.M{"read": true}})
		if err != nil {
			return translate(err, domainnotifications.ErrNotificationNotFound)
		}
		if res.MatchedCount != int64(len(raw)) {
			return dataservice.NotFound(domainnotifications.ErrNotificationNotFound)
		}
		return nil
	})
}

func (r *NotificationStore) Insert(ctx context.Context, n domainnotifications.Notification) error {
	if n.ID == "" {
		return domainnotifications.ErrIDRequired
	}
	_, err := r.col.InsertOne(ctx, newNotificationDocument(n))
	return translate(err, domainnotifications.ErrNotificationNotFound)
}

var _ domainnotifications.Repository = (*NotificationStore)(nil)
