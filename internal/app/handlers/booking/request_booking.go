package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

const RequestBookingKey = "booking.request"

type RequestBookingCommand struct {
	ListingID string `validate:"required"`
	GuestID   string `validate:"required"`
	CheckIn   time.Time
	CheckOut  time.Time
	// AdvanceAmount overrides the computed advance when set.
	AdvanceAmount   *int64 `validate:"omitempty,gte=0"`
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return RequestBookingKey }

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &dto.BookingCreated{} }

func (c RequestBookingCommand) ActorID() string { return c.GuestID }

func (c RequestBookingCommand) LockKey() string {
	return "listing:" + strings.TrimSpace(c.ListingID)
}

type RequestBookingHandler struct {
	Outbox         outbox.Outbox
	Encoder        outbox.EventEncoder
	Logger         *slog.Logger
	AdvancePercent int
	Clock          Clock
	NewID          func() string
}

// Handle creates a pending booking. It expects the Serialize middleware to hold the
// listing lock so that the overlap check and the insert are not interleaved.
func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (dto.BookingCreated, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.BookingCreated{}, err
	}
	dr, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return dto.BookingCreated{}, domainbooking.ErrInvalidDateRange
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(strings.TrimSpace(cmd.ListingID)))
	if err != nil {
		return dto.BookingCreated{}, domainbooking.Persistence("load listing", err)
	}

	overlapping, err := unit.Bookings().Overlapping(ctx, listing.ID, dr)
	if err != nil {
		return dto.BookingCreated{}, domainbooking.Persistence("find overlapping bookings", err)
	}
	if conflicts := domainavailability.FromBookings(listing.ID, overlapping).Conflicts(dr); len(conflicts) > 0 {
		loggerOrDefault(h.Logger).InfoContext(ctx, "booking request overlaps existing stay",
			"listing_id", listing.ID, "range", dr.String(), "conflicts", conflicts)
		return dto.BookingCreated{}, domainbooking.ErrDateRangeUnavailable
	}

	quote, err := domainbooking.NewQuote(domainbooking.QuoteParams{
		Range:           dr,
		NightlyRate:     listing.NightlyRate,
		AdvancePercent:  h.AdvancePercent,
		AdvanceOverride: cmd.AdvanceAmount,
	})
	if err != nil {
		return dto.BookingCreated{}, err
	}

	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(h.newID()),
		ListingID: listing.ID,
		GuestID:   strings.TrimSpace(cmd.GuestID),
		Range:     dr,
		Quote:     quote,
		CreatedAt: h.Clock.now(),
	})
	if err != nil {
		return dto.BookingCreated{}, err
	}
	if err := unit.Bookings().Insert(ctx, b); err != nil {
		return dto.BookingCreated{}, domainbooking.Persistence("insert booking", err)
	}
	if err := recordEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
		return dto.BookingCreated{}, err
	}

	loggerOrDefault(h.Logger).InfoContext(ctx, "booking requested",
		"booking_id", b.ID, "listing_id", b.ListingID, "guest_id", b.GuestID,
		"nights", b.Nights, "total", b.Total.String(), "advance", b.Advance.String())
	return dto.MapBookingCreated(b), nil
}

func (h *RequestBookingHandler) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}

var (
	_ commands.Handler[RequestBookingCommand, dto.BookingCreated] = (*RequestBookingHandler)(nil)
	_ middleware.IdempotentCommand                               = RequestBookingCommand{}
	_ middleware.Lockable                                        = RequestBookingCommand{}
	_ middleware.Actor                                           = RequestBookingCommand{}
)
