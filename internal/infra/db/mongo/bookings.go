package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chakastays/internal/app/dataservice"
	domainbooking "chakastays/internal/domain/booking"
	domainproperties "chakastays/internal/domain/properties"
)

type BookingStore struct {
	col        *mongo.Collection
	properties *mongo.Collection
}

func NewBookingStore(db *mongo.Database) *BookingStore {
	return &BookingStore{col: db.Collection(colBookings), properties: db.Collection(colProperties)}
}

func (r *BookingStore) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		return nil, translate(err, domainbooking.ErrBookingNotFound)
	}
	return doc.toAggregate()
}

func (r *BookingStore) ActiveByProperty(ctx context.Context, propertyID domainproperties.PropertyID, today time.Time) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"property_id": string(propertyID),
		"status":      bson.M{"$ne": string(domainbooking.StatusCancelled)},
		"range.end":   bson.M{"$gte": today.UTC()},
	}
	return r.find(ctx, filter)
}

func (r *BookingStore) ByProperties(ctx context.Context, ids []domainproperties.PropertyID) ([]*domainbooking.Booking, error) {
	if len(ids) == 0 {
		return []*domainbooking.Booking{}, nil
	}
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, string(id))
	}
	return r.find(ctx, bson.M{"property_id": bson.M{"$in": raw}})
}

func (r *BookingStore) ByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"guest_id": guestID})
}

func (r *BookingStore) ByHost(ctx context.Context, hostID domainproperties.HostID) ([]*domainbooking.Booking, error) {
	raw, err := r.properties.Distinct(ctx, "_id", bson.M{"host_id": string(hostID)})
	if err != nil {
		return nil, translate(err, domainproperties.ErrNotFound)
	}
	ids := make([]domainproperties.PropertyID, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids = append(ids, domainproperties.PropertyID(s))
		}
	}
	return r.ByProperties(ctx, ids)
}

func (r *BookingStore) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, translate(err, domainbooking.ErrBookingNotFound)
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err, domainbooking.ErrBookingNotFound)
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	var errs []error
	for _, d := range docs {
		b, err := d.toAggregate()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, b)
	}
	return out, errors.Join(errs...)
}

// replace writes b if its stored version is still expected.
func (r *BookingStore) replace(ctx context.Context, b *domainbooking.Booking, expected int64) error {
	doc, err := newBookingDocument(b)
	if err != nil {
		return err
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": expected}, doc)
	if err != nil {
		return translate(err, domainbooking.ErrBookingNotFound)
	}
	if res.MatchedCount == 0 {
		return dataservice.ErrConflict
	}
	return nil
}

type BlockStore struct {
	col *mongo.Collection
}

func NewBlockStore(db *mongo.Database) *BlockStore {
	return &BlockStore{col: db.Collection(colBlocks)}
}

func (r *BlockStore) ByID(ctx context.Context, id domainbooking.BlockID) (*domainbooking.BlockedDate, error) {
	var doc blockDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		return nil, translate(err, domainbooking.ErrBlockNotFound)
	}
	return doc.toBlock(), nil
}

func (r *BlockStore) ActiveByProperty(ctx context.Context, propertyID domainproperties.PropertyID, today time.Time) ([]*domainbooking.BlockedDate, error) {
	filter := bson.M{"property_id": string(propertyID), "range.end": bson.M{"$gte": today.UTC()}}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "range.start", Value: 1}}))
	if err != nil {
		return nil, translate(err, domainbooking.ErrBlockNotFound)
	}
	var docs []blockDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err, domainbooking.ErrBlockNotFound)
	}
	out := make([]*domainbooking.BlockedDate, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toBlock())
	}
	return out, nil
}

var (
	_ domainbooking.Repository      = (*BookingStore)(nil)
	_ domainbooking.BlockRepository = (*BlockStore)(nil)
)
