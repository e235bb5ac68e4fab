package mongo

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver"

	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func TestBookingDocument_KeepsLifecycleFields(t *testing.T) {
	created := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	submitted := created.Add(2 * time.Hour)
	b := &domainbooking.Booking{
		ID:                 "bk-1",
		ListingID:          "lst-1",
		GuestID:            "guest-1",
		Range:              daterange.DateRange{CheckIn: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), CheckOut: time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)},
		Nights:             3,
		NightlyRate:        money.Must(10000, "LKR"),
		Total:              money.Must(30000, "LKR"),
		Advance:            money.Must(7500, "LKR"),
		Status:             domainbooking.StatusPaymentSubmitted,
		ReceiptRef:         "receipts/guest-1/bk-1.png",
		PaymentSubmittedAt: submitted,
		CreatedAt:          created,
		UpdatedAt:          submitted,
		Version:            2,
	}

	got := newBookingDocument(b).toAggregate()
	if got.Status != b.Status || got.ReceiptRef != b.ReceiptRef || got.Version != 2 {
		t.Fatalf("unexpected booking %+v", got)
	}
	if !got.Range.CheckIn.Equal(b.Range.CheckIn) || got.Range.Nights() != 3 {
		t.Fatalf("unexpected range %s", got.Range)
	}
	if got.Advance != b.Advance || got.Total != b.Total {
		t.Fatalf("unexpected money total=%v advance=%v", got.Total, got.Advance)
	}
	if !got.PaymentSubmittedAt.Equal(submitted) || !got.DecidedAt.IsZero() {
		t.Fatalf("unexpected timestamps submitted=%v decided=%v", got.PaymentSubmittedAt, got.DecidedAt)
	}
}

func TestTranslateWriteError(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	if err := translateWriteError(dup); !errors.Is(err, domainbooking.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification for duplicate key, got %v", err)
	}
	conflict := mongo.CommandError{Code: 112, Name: "WriteConflict", Labels: []string{driver.TransientTransactionError}}
	if err := translateWriteError(conflict); !errors.Is(err, domainbooking.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification for write conflict, got %v", err)
	}
	other := errors.New("socket closed")
	if err := translateWriteError(other); err != other {
		t.Fatalf("expected error to pass through, got %v", err)
	}
	if err := translateWriteError(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestSearchFilter(t *testing.T) {
	if got := searchFilter(domainlistings.SearchParams{}.Normalized()); len(got) != 0 {
		t.Fatalf("expected empty filter, got %v", got)
	}

	got := searchFilter(domainlistings.SearchParams{Query: " Galle.Fort ", MinBeds: 2}.Normalized())
	if beds, ok := got["beds"].(bson.M); !ok || beds["$gte"] != 2 {
		t.Fatalf("unexpected beds filter %v", got["beds"])
	}
	or, ok := got["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("expected location/title alternatives, got %v", got["$or"])
	}
	loc := or[0].(bson.M)["location"].(primitive.Regex)
	if loc.Pattern != `galle\.fort` || loc.Options != "i" {
		t.Fatalf("expected escaped case-insensitive pattern, got %+v", loc)
	}
	if _, ok := or[1].(bson.M)["title"]; !ok {
		t.Fatalf("expected title alternative, got %v", or[1])
	}
}

func TestListingOrder_NewestFirst(t *testing.T) {
	if len(newestFirst) != 2 || newestFirst[0].Key != "created_at" || newestFirst[0].Value != -1 {
		t.Fatalf("listings must sort by created_at desc, got %v", newestFirst)
	}
}
