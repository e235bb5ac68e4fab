package mongo

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "staybook/internal/domain/listings"
)

const listingsCollection = "agg_listing"

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection(listingsCollection)}
}

func ensureListingIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(listingsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}},
	})
	return err
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrListingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	doc := newListingDocument(listing)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *ListingRepository) ListByHost(ctx context.Context, host domainlistings.HostID) ([]*domainlistings.Listing, error) {
	return r.find(ctx, bson.M{"host_id": string(host)}, options.Find().SetSort(newestFirst))
}

// newestFirst mirrors domainlistings.SortNewestFirst.
var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}

func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	opts := params.Normalized()
	filter := searchFilter(opts)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	items, err := r.find(ctx, filter, options.Find().
		SetSort(newestFirst).
		SetSkip(int64(opts.Offset)).
		SetLimit(int64(opts.Limit)))
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	return domainlistings.SearchResult{Items: items, Total: int(total)}, nil
}

func searchFilter(opts domainlistings.SearchParams) bson.M {
	filter := bson.M{}
	if opts.MinBeds > 0 {
		filter["beds"] = bson.M{"$gte": opts.MinBeds}
	}
	if opts.Query != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(opts.Query), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"location": pattern},
			bson.M{"title": pattern},
		}
	}
	return filter
}

func (r *ListingRepository) Delete(ctx context.Context, id domainlistings.ListingID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainlistings.ErrListingNotFound
	}
	return nil
}

func (r *ListingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainlistings.Listing, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainlistings.Listing, 0)
	for cur.Next(ctx) {
		var doc listingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type listingDocument struct {
	ID          string        `bson:"_id"`
	HostID      string        `bson:"host_id"`
	Title       string        `bson:"title"`
	Description string        `bson:"description"`
	Location    string        `bson:"location"`
	NightlyRate moneyDocument `bson:"nightly_rate"`
	Beds        int           `bson:"beds"`
	Baths       int           `bson:"baths"`
	ImageURL    string        `bson:"image_url,omitempty"`
	Facilities  []string      `bson:"facilities,omitempty"`
	Latitude    float64       `bson:"lat"`
	Longitude   float64       `bson:"lng"`
	CreatedAt   int64         `bson:"created_at"`
	UpdatedAt   int64         `bson:"updated_at"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:          string(l.ID),
		HostID:      string(l.Host),
		Title:       l.Title,
		Description: l.Description,
		Location:    l.Location,
		NightlyRate: newMoneyDocument(l.NightlyRate),
		Beds:        l.Beds,
		Baths:       l.Baths,
		ImageURL:    l.ImageURL,
		Facilities:  l.Facilities,
		Latitude:    l.Latitude,
		Longitude:   l.Longitude,
		CreatedAt:   timeToTimestamp(l.CreatedAt),
		UpdatedAt:   timeToTimestamp(l.UpdatedAt),
	}
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:          domainlistings.ListingID(d.ID),
		Host:        domainlistings.HostID(d.HostID),
		Title:       d.Title,
		Description: d.Description,
		Location:    d.Location,
		NightlyRate: d.NightlyRate.toMoney(),
		Beds:        d.Beds,
		Baths:       d.Baths,
		ImageURL:    d.ImageURL,
		Facilities:  d.Facilities,
		Latitude:    d.Latitude,
		Longitude:   d.Longitude,
		CreatedAt:   timestampToTime(d.CreatedAt),
		UpdatedAt:   timestampToTime(d.UpdatedAt),
	}
}
