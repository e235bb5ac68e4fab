package booking

import (
	"context"
	"log/slog"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
)

const DecideBookingKey = "booking.decide"

type DecideBookingCommand struct {
	BookingID string                 `validate:"required"`
	HostID    string                 `validate:"required"`
	Decision  domainbooking.Decision `validate:"required,oneof=confirm reject"`
	Reason    string                 `validate:"max=500"`
}

func (c DecideBookingCommand) Key() string { return DecideBookingKey }

func (c DecideBookingCommand) ActorID() string { return c.HostID }

type DecideBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Clock   Clock
}

func (h *DecideBookingHandler) Handle(ctx context.Context, cmd DecideBookingCommand) (dto.BookingTransition, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.BookingTransition{}, err
	}
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return dto.BookingTransition{}, domainbooking.Persistence("load booking", err)
	}
	_, hostID, err := hostOf(ctx, unit.Listings(), b.ListingID)
	if err != nil {
		return dto.BookingTransition{}, err
	}
	if err := b.Decide(cmd.Decision, hostID, cmd.HostID, cmd.Reason, h.Clock.now()); err != nil {
		return dto.BookingTransition{}, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return dto.BookingTransition{}, domainbooking.Persistence("save booking", err)
	}
	if err := recordEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
		return dto.BookingTransition{}, err
	}
	loggerOrDefault(h.Logger).InfoContext(ctx, "booking decided",
		"booking_id", b.ID, "decision", cmd.Decision, "status", b.Status, "host_id", cmd.HostID)
	return dto.MapTransition(b), nil
}

var _ commands.Handler[DecideBookingCommand, dto.BookingTransition] = (*DecideBookingHandler)(nil)
