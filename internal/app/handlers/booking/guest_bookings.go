package booking

import (
	"context"
	"log/slog"
	"sort"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
)

const ListGuestBookingsKey = "me.bookings.list"

type ListGuestBookingsQuery struct {
	GuestID string `validate:"required"`
}

func (q ListGuestBookingsQuery) Key() string { return ListGuestBookingsKey }

func (q ListGuestBookingsQuery) ActorID() string { return q.GuestID }

type ListGuestBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListGuestBookingsHandler) Handle(ctx context.Context, q ListGuestBookingsQuery) (dto.BookingCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	bookings, err := unit.Bookings().ListByGuest(execCtx, q.GuestID)
	if err != nil {
		return dto.BookingCollection{}, domainbooking.Persistence("list guest bookings", err)
	}
	sortNewestFirst(bookings)

	listingCache := make(map[domainlistings.ListingID]*domainlistings.Listing)
	items := make([]dto.BookingView, 0, len(bookings))
	for _, b := range bookings {
		listing, ok := listingCache[b.ListingID]
		if !ok {
			listing, _, err = hostOf(execCtx, unit.Listings(), b.ListingID)
			if err != nil {
				return dto.BookingCollection{}, err
			}
			if listing == nil {
				loggerOrDefault(h.Logger).WarnContext(execCtx, "booking references missing listing", "booking_id", b.ID, "listing_id", b.ListingID)
			}
			listingCache[b.ListingID] = listing
		}
		items = append(items, dto.MapBooking(b, listing))
	}
	return dto.BookingCollection{Items: items}, nil
}

func sortNewestFirst(bookings []*domainbooking.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
}

var _ queries.Handler[ListGuestBookingsQuery, dto.BookingCollection] = (*ListGuestBookingsHandler)(nil)
