package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver"

	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

const bookingsCollection = "agg_booking"

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection)}
}

func ensureBookingIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(bookingsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "status", Value: 1}, {Key: "range.check_in", Value: 1}}},
		{Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Insert(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return translateWriteError(err)
	}
	b.Version = doc.Version
	return nil
}

// Save replaces the stored booking only if its version still matches.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	res, err := r.col.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return translateWriteError(err)
	}
	if res.MatchedCount == 0 {
		count, err := r.col.CountDocuments(ctx, bson.M{"_id": doc.ID})
		if err != nil {
			return err
		}
		if count == 0 {
			return domainbooking.ErrBookingNotFound
		}
		return domainbooking.ErrConcurrentModification
	}
	b.Version = doc.Version
	return nil
}

// Overlapping matches half-open ranges: existing.check_in < r.check_out and r.check_in < existing.check_out.
func (r *BookingRepository) Overlapping(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"listing_id":      string(listingID),
		"status":          bson.M{"$ne": string(domainbooking.StatusCancelled)},
		"range.check_in":  bson.M{"$lt": dr.CheckOut.UnixMilli()},
		"range.check_out": bson.M{"$gt": dr.CheckIn.UnixMilli()},
	}
	return r.find(ctx, filter)
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"guest_id": guestID})
}

func (r *BookingRepository) ListByListing(ctx context.Context, listingID listings.ListingID) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"listing_id": string(listingID)})
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainbooking.Booking, 0)
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

// translateWriteError maps write conflicts inside a transaction to the domain
// concurrency error so callers can retry.
func translateWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return domainbooking.ErrConcurrentModification
	}
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) && labeled.HasErrorLabel(driver.TransientTransactionError) {
		return domainbooking.ErrConcurrentModification
	}
	return err
}

type bookingDocument struct {
	ID                 string        `bson:"_id"`
	ListingID          string        `bson:"listing_id"`
	GuestID            string        `bson:"guest_id"`
	Range              rangeDocument `bson:"range"`
	Nights             int           `bson:"nights"`
	NightlyRate        moneyDocument `bson:"nightly_rate"`
	Total              moneyDocument `bson:"total"`
	Advance            moneyDocument `bson:"advance"`
	Status             string        `bson:"status"`
	ReceiptRef         string        `bson:"receipt_ref,omitempty"`
	PaymentSubmittedAt int64         `bson:"payment_submitted_at,omitempty"`
	DecidedBy          string        `bson:"decided_by,omitempty"`
	DecidedAt          int64         `bson:"decided_at,omitempty"`
	DecisionReason     string        `bson:"decision_reason,omitempty"`
	CreatedAt          int64         `bson:"created_at"`
	UpdatedAt          int64         `bson:"updated_at"`
	Version            int64         `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:                 string(b.ID),
		ListingID:          string(b.ListingID),
		GuestID:            b.GuestID,
		Range:              rangeDocument{CheckIn: b.Range.CheckIn.UnixMilli(), CheckOut: b.Range.CheckOut.UnixMilli()},
		Nights:             b.Nights,
		NightlyRate:        newMoneyDocument(b.NightlyRate),
		Total:              newMoneyDocument(b.Total),
		Advance:            newMoneyDocument(b.Advance),
		Status:             string(b.Status),
		ReceiptRef:         b.ReceiptRef,
		PaymentSubmittedAt: timeToTimestamp(b.PaymentSubmittedAt),
		DecidedBy:          b.DecidedBy,
		DecidedAt:          timeToTimestamp(b.DecidedAt),
		DecisionReason:     b.DecisionReason,
		CreatedAt:          b.CreatedAt.UnixMilli(),
		UpdatedAt:          b.UpdatedAt.UnixMilli(),
		Version:            b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:                 domainbooking.BookingID(d.ID),
		ListingID:          listings.ListingID(d.ListingID),
		GuestID:            d.GuestID,
		Range:              daterange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn), CheckOut: timestampToTime(d.Range.CheckOut)},
		Nights:             d.Nights,
		NightlyRate:        d.NightlyRate.toMoney(),
		Total:              d.Total.toMoney(),
		Advance:            d.Advance.toMoney(),
		Status:             domainbooking.Status(d.Status),
		ReceiptRef:         d.ReceiptRef,
		PaymentSubmittedAt: timestampToTime(d.PaymentSubmittedAt),
		DecidedBy:          d.DecidedBy,
		DecidedAt:          timestampToTime(d.DecidedAt),
		DecisionReason:     d.DecisionReason,
		CreatedAt:          timestampToTime(d.CreatedAt),
		UpdatedAt:          timestampToTime(d.UpdatedAt),
		Version:            d.Version,
	}
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount, Currency: m.Currency}
}

func (d moneyDocument) toMoney() money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

func timestampToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func timeToTimestamp(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
