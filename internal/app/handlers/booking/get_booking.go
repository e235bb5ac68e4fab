package booking

import (
	"context"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
)

const GetBookingKey = "booking.get"

type GetBookingQuery struct {
	BookingID string `validate:"required"`
	ViewerID  string `validate:"required"`
}

func (q GetBookingQuery) Key() string { return GetBookingKey }

func (q GetBookingQuery) ActorID() string { return q.ViewerID }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.BookingView, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingView{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.BookingView{}, domainbooking.Persistence("load booking", err)
	}
	listing, hostID, err := hostOf(execCtx, unit.Listings(), b.ListingID)
	if err != nil {
		return dto.BookingView{}, err
	}
	if !b.VisibleTo(q.ViewerID, hostID) {
		return dto.BookingView{}, domainbooking.ErrUnauthorized
	}
	return dto.MapBooking(b, listing), nil
}

var _ queries.Handler[GetBookingQuery, dto.BookingView] = (*GetBookingHandler)(nil)
