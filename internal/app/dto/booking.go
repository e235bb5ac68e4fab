package dto

import (
	"time"

	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type BookingListingSnapshot struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Location    string   `json:"location"`
	ImageURL    string   `json:"image_url,omitempty"`
	HostID      string   `json:"host_id"`
	NightlyRate MoneyDTO `json:"nightly_rate"`
}

type BookingView struct {
	ID                 string                 `json:"id"`
	Listing            BookingListingSnapshot `json:"listing"`
	GuestID            string                 `json:"guest_id"`
	CheckIn            string                 `json:"check_in"`
	CheckOut           string                 `json:"check_out"`
	Nights             int                    `json:"nights"`
	NightlyRate        MoneyDTO               `json:"nightly_rate"`
	Total              MoneyDTO               `json:"total"`
	Advance            MoneyDTO               `json:"advance"`
	Status             string                 `json:"status"`
	ReceiptRef         string                 `json:"receipt_ref,omitempty"`
	PaymentSubmittedAt *time.Time             `json:"payment_submitted_at,omitempty"`
	DecidedAt          *time.Time             `json:"decided_at,omitempty"`
	DecisionReason     string                 `json:"decision_reason,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

type BookingCollection struct {
	Items []BookingView `json:"items"`
}

// BookingCreated is returned by the create command and replayed for idempotent retries.
type BookingCreated struct {
	BookingID string   `json:"booking_id"`
	Status    string   `json:"status"`
	CheckIn   string   `json:"check_in"`
	CheckOut  string   `json:"check_out"`
	Nights    int      `json:"nights"`
	Total     MoneyDTO `json:"total"`
	Advance   MoneyDTO `json:"advance"`
}

type BookingTransition struct {
	BookingID string    `json:"booking_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PaymentInstructions struct {
	BookingID           string   `json:"booking_id"`
	Advance             MoneyDTO `json:"advance"`
	Total               MoneyDTO `json:"total"`
	BankName            string   `json:"bank_name"`
	AccountNumber       string   `json:"account_number"`
	MaskedAccountNumber string   `json:"masked_account_number"`
	AccountHolder       string   `json:"account_holder"`
	Branch              string   `json:"branch"`
	Text                string   `json:"text"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

func MapListingSnapshot(id domainlistings.ListingID, listing *domainlistings.Listing) BookingListingSnapshot {
	snapshot := BookingListingSnapshot{ID: string(id)}
	if listing == nil {
		return snapshot
	}
	snapshot.Title = listing.Title
	snapshot.Location = listing.Location
	snapshot.ImageURL = listing.ImageURL
	snapshot.HostID = string(listing.Host)
	snapshot.NightlyRate = MapMoney(listing.NightlyRate)
	return snapshot
}

func MapBooking(b *domainbooking.Booking, listing *domainlistings.Listing) BookingView {
	view := BookingView{
		ID:             string(b.ID),
		Listing:        MapListingSnapshot(b.ListingID, listing),
		GuestID:        b.GuestID,
		CheckIn:        b.Range.CheckIn.Format(daterange.DateLayout),
		CheckOut:       b.Range.CheckOut.Format(daterange.DateLayout),
		Nights:         b.Nights,
		NightlyRate:    MapMoney(b.NightlyRate),
		Total:          MapMoney(b.Total),
		Advance:        MapMoney(b.Advance),
		Status:         string(b.Status),
		ReceiptRef:     b.ReceiptRef,
		DecisionReason: b.DecisionReason,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
	view.PaymentSubmittedAt = optionalTime(b.PaymentSubmittedAt)
	view.DecidedAt = optionalTime(b.DecidedAt)
	return view
}

func MapBookingCreated(b *domainbooking.Booking) BookingCreated {
	return BookingCreated{
		BookingID: string(b.ID),
		Status:    string(b.Status),
		CheckIn:   b.Range.CheckIn.Format(daterange.DateLayout),
		CheckOut:  b.Range.CheckOut.Format(daterange.DateLayout),
		Nights:    b.Nights,
		Total:     MapMoney(b.Total),
		Advance:   MapMoney(b.Advance),
	}
}

func MapTransition(b *domainbooking.Booking) BookingTransition {
	return BookingTransition{BookingID: string(b.ID), Status: string(b.Status), UpdatedAt: b.UpdatedAt}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
