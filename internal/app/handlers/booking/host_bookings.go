package booking

import (
	"context"
	"fmt"
	"strings"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
)

const ListHostBookingsKey = "host.bookings.list"

type ListHostBookingsQuery struct {
	HostID string `validate:"required"`
	// Status filters by booking status; empty or ALL returns every booking.
	Status string
}

func (q ListHostBookingsQuery) Key() string { return ListHostBookingsKey }

func (q ListHostBookingsQuery) ActorID() string { return q.HostID }

type ListHostBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListHostBookingsHandler) Handle(ctx context.Context, q ListHostBookingsQuery) (dto.BookingCollection, error) {
	var filter domainbooking.Status
	if raw := strings.TrimSpace(q.Status); raw != "" && !strings.EqualFold(raw, allStatusesFilterValue) {
		status, err := domainbooking.ParseStatus(raw)
		if err != nil {
			return dto.BookingCollection{}, fmt.Errorf("%w: %s", ErrInvalidStatusFilter, raw)
		}
		filter = status
	}

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	hosted, err := unit.Listings().ListByHost(execCtx, domainlistings.HostID(q.HostID))
	if err != nil {
		return dto.BookingCollection{}, domainbooking.Persistence("list host listings", err)
	}

	type row struct {
		booking *domainbooking.Booking
		listing *domainlistings.Listing
	}
	var rows []row
	for _, listing := range hosted {
		bookings, err := unit.Bookings().ListByListing(execCtx, listing.ID)
		if err != nil {
			return dto.BookingCollection{}, domainbooking.Persistence("list listing bookings", err)
		}
		for _, b := range bookings {
			if filter != "" && b.Status != filter {
				continue
			}
			rows = append(rows, row{booking: b, listing: listing})
		}
	}

	bookings := make([]*domainbooking.Booking, len(rows))
	byID := make(map[domainbooking.BookingID]*domainlistings.Listing, len(rows))
	for i, r := range rows {
		bookings[i] = r.booking
		byID[r.booking.ID] = r.listing
	}
	sortNewestFirst(bookings)

	items := make([]dto.BookingView, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, dto.MapBooking(b, byID[b.ID]))
	}
	return dto.BookingCollection{Items: items}, nil
}

var _ queries.Handler[ListHostBookingsQuery, dto.BookingCollection] = (*ListHostBookingsHandler)(nil)
