package booking

import (
	"context"
	"time"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

const GetListingAvailabilityKey = "listing.availability"

// GetListingAvailabilityQuery returns the nights held by non-cancelled bookings.
// From and To are optional; when both are set the result is clipped to [From, To).
type GetListingAvailabilityQuery struct {
	ListingID string `validate:"required"`
	From      time.Time
	To        time.Time
}

func (q GetListingAvailabilityQuery) Key() string { return GetListingAvailabilityKey }

type GetListingAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingAvailabilityHandler) Handle(ctx context.Context, q GetListingAvailabilityQuery) (dto.ListingAvailability, error) {
	var window daterange.DateRange
	if !q.From.IsZero() || !q.To.IsZero() {
		var err error
		if window, err = daterange.New(q.From, q.To); err != nil {
			return dto.ListingAvailability{}, domainbooking.ErrInvalidDateRange
		}
	}

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingAvailability{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	listing, err := unit.Listings().ByID(execCtx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.ListingAvailability{}, domainbooking.Persistence("load listing", err)
	}
	bookings, err := unit.Bookings().ListByListing(execCtx, listing.ID)
	if err != nil {
		return dto.ListingAvailability{}, domainbooking.Persistence("list listing bookings", err)
	}
	return dto.MapAvailability(domainavailability.FromBookings(listing.ID, bookings), window), nil
}

var _ queries.Handler[GetListingAvailabilityQuery, dto.ListingAvailability] = (*GetListingAvailabilityHandler)(nil)
