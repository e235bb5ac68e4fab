package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
)

type BookingID string

type Status string

const (
	StatusPending          Status = "pending"
	StatusPaymentSubmitted Status = "payment_submitted"
	StatusConfirmed        Status = "confirmed"
	StatusCancelled        Status = "cancelled"
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusPaymentSubmitted, StatusConfirmed, StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("booking: unknown status %q", raw)
	}
}

// Terminal statuses admit no further transitions.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// Blocking reports whether a booking in this status occupies its dates.
func (s Status) Blocking() bool {
	return s != StatusCancelled
}

type Decision string

const (
	DecisionConfirm Decision = "confirm"
	DecisionReject  Decision = "reject"
)

type Booking struct {
	ID                 BookingID
	ListingID          listings.ListingID
	GuestID            string
	Range              daterange.DateRange
	Nights             int
	NightlyRate        money.Money
	Total              money.Money
	Advance            money.Money
	Status             Status
	ReceiptRef         string
	PaymentSubmittedAt time.Time
	DecidedBy          string
	DecidedAt          time.Time
	DecisionReason     string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int64
	events.EventRecorder
}

// Repository persists bookings. Save is a compare-and-swap on Version and
// reports ErrConcurrentModification when the stored version moved on.
type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Insert(ctx context.Context, booking *Booking) error
	Save(ctx context.Context, booking *Booking) error
	// Overlapping returns the non-cancelled bookings of listingID that share a night with r.
	Overlapping(ctx context.Context, listingID listings.ListingID, r daterange.DateRange) ([]*Booking, error)
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	ListByListing(ctx context.Context, listingID listings.ListingID) ([]*Booking, error)
}

type CreateParams struct {
	ID        BookingID
	ListingID listings.ListingID
	GuestID   string
	Range     daterange.DateRange
	Quote     Quote
	CreatedAt time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, ErrGuestRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, ErrInvalidDateRange
	}
	if params.Quote.Advance.Amount < 0 || params.Quote.Advance.Amount > params.Quote.Total.Amount {
		return nil, ErrInvalidAdvance
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:          params.ID,
		ListingID:   params.ListingID,
		GuestID:     params.GuestID,
		Range:       params.Range,
		Nights:      params.Quote.Nights,
		NightlyRate: params.Quote.NightlyRate,
		Total:       params.Quote.Total,
		Advance:     params.Quote.Advance,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.Record(BookingRequested{BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, Range: b.Range, Total: b.Total, Advance: b.Advance, At: now})
	return b, nil
}

// CanSubmitReceipt checks the receipt preconditions without changing the booking.
func (b *Booking) CanSubmitReceipt(actorID string) error {
	if actorID == "" || actorID != b.GuestID {
		return ErrUnauthorized
	}
	if b.Status != StatusPending {
		return ErrInvalidTransition
	}
	return nil
}

func (b *Booking) SubmitPaymentReceipt(actorID, receiptRef string, now time.Time) error {
	if err := b.CanSubmitReceipt(actorID); err != nil {
		return err
	}
	receiptRef = strings.TrimSpace(receiptRef)
	if receiptRef == "" {
		return ErrReceiptRequired
	}
	b.ReceiptRef = receiptRef
	b.PaymentSubmittedAt = now.UTC()
	b.Status = StatusPaymentSubmitted
	b.UpdatedAt = now.UTC()
	b.Record(PaymentReceiptSubmitted{BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, ReceiptRef: receiptRef, At: b.UpdatedAt})
	return nil
}

// Confirm accepts a booking whose advance payment receipt has been submitted.
func (b *Booking) Confirm(hostID, actorID string, now time.Time) error {
	if err := authorizeHost(hostID, actorID); err != nil {
		return err
	}
	if b.Status != StatusPaymentSubmitted {
		return ErrInvalidTransition
	}
	b.Status = StatusConfirmed
	b.stampDecision(actorID, "", now)
	b.Record(BookingConfirmed{BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, HostID: actorID, Range: b.Range, Total: b.Total, At: b.UpdatedAt})
	return nil
}

// Reject cancels a booking that is still awaiting payment or verification.
func (b *Booking) Reject(hostID, actorID, reason string, now time.Time) error {
	if err := authorizeHost(hostID, actorID); err != nil {
		return err
	}
	if b.Status != StatusPending && b.Status != StatusPaymentSubmitted {
		return ErrInvalidTransition
	}
	b.Status = StatusCancelled
	b.stampDecision(actorID, strings.TrimSpace(reason), now)
	b.Record(BookingCancelled{BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, HostID: actorID, Reason: b.DecisionReason, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Decide(decision Decision, hostID, actorID, reason string, now time.Time) error {
	switch decision {
	case DecisionConfirm:
		return b.Confirm(hostID, actorID, now)
	case DecisionReject:
		return b.Reject(hostID, actorID, reason, now)
	default:
		return ErrUnknownDecision
	}
}

// VisibleTo reports whether actorID is the guest or the host of the listing.
func (b *Booking) VisibleTo(actorID, hostID string) bool {
	if actorID == "" {
		return false
	}
	return actorID == b.GuestID || actorID == hostID
}

func (b *Booking) stampDecision(actorID, reason string, now time.Time) {
	b.DecidedBy = actorID
	b.DecidedAt = now.UTC()
	b.DecisionReason = reason
	b.UpdatedAt = now.UTC()
}

func authorizeHost(hostID, actorID string) error {
	if hostID == "" || actorID != hostID {
		return ErrUnauthorized
	}
	return nil
}
