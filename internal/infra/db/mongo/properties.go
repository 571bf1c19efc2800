package mongo

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chakastays/internal/app/dataservice"
	domainproperties "chakastays/internal/domain/properties"
)

type PropertyStore struct {
	col *mongo.Collection
}

func NewPropertyStore(db *mongo.Database) *PropertyStore {
	return &PropertyStore{col: db.Collection(colProperties)}
}

func (r *PropertyStore) ByID(ctx context.Context, id domainproperties.PropertyID) (*domainproperties.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		return nil, translate(err, domainproperties.ErrNotFound)
	}
	return doc.toAggregate()
}

func (r *PropertyStore) ByHost(ctx context.Context, host domainproperties.HostID) ([]*domainproperties.Property, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"host_id": string(host)}, opts)
}

// Search pushes filters, ordering and paging down to Mongo. Prices are Decimal128 so they compare numerically.
func (r *PropertyStore) Search(ctx context.Context, params domainproperties.SearchParams) (domainproperties.SearchResult, error) {
	p := params.Normalized()
	filter := searchFilter(p)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return domainproperties.SearchResult{}, translate(err, domainproperties.ErrNotFound)
	}
	opts := options.Find().
		SetSort(searchSort(p.Sort)).
		SetSkip(int64(p.Offset)).
		SetLimit(int64(p.Limit))
	items, err := r.find(ctx, filter, opts)
	if err != nil {
		return domainproperties.SearchResult{}, err
	}
	return domainproperties.SearchResult{Items: items, Total: int(total)}, nil
}

// Save is an optimistic upsert: the stored version must match the caller's copy.
func (r *PropertyStore) Save(ctx context.Context, p *domainproperties.Property) error {
	if p == nil || p.ID == "" {
		return domainproperties.ErrIDRequired
	}
	doc, err := newPropertyDocument(p)
	if err != nil {
		return err
	}
	doc.Version = p.Version + 1
	filter := bson.M{"_id": doc.ID, "version": p.Version}
	res, err := r.col.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return dataservice.ErrConflict
		}
		return translate(err, domainproperties.ErrNotFound)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return dataservice.ErrConflict
	}
	p.Version = doc.Version
	return nil
}

func (r *PropertyStore) find(ctx context.Context, filter any, opts *options.FindOptions) ([]*domainproperties.Property, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err, domainproperties.ErrNotFound)
	}
	var docs []propertyDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err, domainproperties.ErrNotFound)
	}
	out := make([]*domainproperties.Property, 0, len(docs))
	var errs []error
	for _, d := range docs {
		p, err := d.toAggregate()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, p)
	}
	return out, errors.Join(errs...)
}

func searchFilter(p domainproperties.SearchParams) bson.M {
	filter := bson.M{}
	if !p.IncludeBanned {
		filter["banned"] = false
	}
	if p.City != "" {
		filter["city_key"] = p.City
	}
	if p.Country != "" {
		filter["country_key"] = p.Country
	}
	if p.Query != "" {
		filter["search_text"] = bson.M{"$regex": regexp.QuoteMeta(p.Query)}
	}
	if p.MinGuests > 0 {
		filter["max_guests"] = bson.M{"$gte": p.MinGuests}
	}
	if len(p.Amenities) > 0 {
		filter["amenities"] = bson.M{"$all": p.Amenities}
	}
	price := bson.M{}
	if p.PriceMin.IsPositive() {
		price["$gte"] = decimal128(p.PriceMin)
	}
	if p.PriceMax.IsPositive() {
		price["$lte"] = decimal128(p.PriceMax)
	}
	if len(price) > 0 {
		filter["price_per_night.amount"] = price
	}
	return filter
}

func searchSort(s domainproperties.SearchSort) bson.D {
	switch s {
	case domainproperties.SortByPriceDesc:
		return bson.D{{Key: "price_per_night.amount", Value: -1}, {Key: "_id", Value: 1}}
	case domainproperties.SortByRating:
		return bson.D{{Key: "rating", Value: -1}, {Key: "review_count", Value: -1}, {Key: "_id", Value: 1}}
	case domainproperties.SortByNewest:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "price_per_night.amount", Value: 1}, {Key: "_id", Value: 1}}
	}
}

var _ domainproperties.Repository = (*PropertyStore)(nil)
