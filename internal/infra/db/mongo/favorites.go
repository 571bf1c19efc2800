package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainfavorites "chakastays/internal/domain/favorites"
	domainproperties "chakastays/internal/domain/properties"
)

type FavoriteStore struct {
	col        *mongo.Collection
	properties *mongo.Collection
}

func NewFavoriteStore(db *mongo.Database) *FavoriteStore {
	return &FavoriteStore{col: db.Collection(colFavorites), properties: db.Collection(colProperties)}
}

func (r *FavoriteStore) ByUser(ctx context.Context, userID string) ([]domainfavorites.Favorite, error) {
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, translate(err, domainproperties.ErrNotFound)
	}
	var docs []favoriteDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err, domainproperties.ErrNotFound)
	}
	out := make([]domainfavorites.Favorite, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toFavorite())
	}
	domainfavorites.SortNewestFirst(out)
	return out, nil
}

// Add upserts with $setOnInsert so a repeated add keeps the first timestamp.
func (r *FavoriteStore) Add(ctx context.Context, fav domainfavorites.Favorite) error {
	if err := r.properties.FindOne(ctx, bson.M{"_id": string(fav.PropertyID)}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err(); err != nil {
		return translate(err, domainproperties.ErrNotFound)
	}
	filter := bson.M{"user_id": fav.UserID, "property_id": string(fav.PropertyID)}
	update := bson.M{"$setOnInsert": bson.M{"created_at": fav.CreatedAt.UTC()}}
	_, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return translate(err, domainproperties.ErrNotFound)
}

func (r *FavoriteStore) Remove(ctx context.Context, userID string, propertyID domainproperties.PropertyID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"user_id": userID, "property_id": string(propertyID)})
	return translate(err, domainproperties.ErrNotFound)
}

var _ domainfavorites.Repository = (*FavoriteStore)(nil)
