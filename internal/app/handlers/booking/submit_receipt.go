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

const SubmitPaymentReceiptKey = "booking.submit_receipt"

type SubmitPaymentReceiptCommand struct {
	BookingID  string `validate:"required"`
	GuestID    string `validate:"required"`
	ReceiptRef string `validate:"required,max=1024"`
}

func (c SubmitPaymentReceiptCommand) Key() string { return SubmitPaymentReceiptKey }

func (c SubmitPaymentReceiptCommand) ActorID() string { return c.GuestID }

type SubmitPaymentReceiptHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Clock   Clock
}

func (h *SubmitPaymentReceiptHandler) Handle(ctx context.Context, cmd SubmitPaymentReceiptCommand) (dto.BookingTransition, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.BookingTransition{}, err
	}
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return dto.BookingTransition{}, domainbooking.Persistence("load booking", err)
	}
	if err := b.SubmitPaymentReceipt(cmd.GuestID, cmd.ReceiptRef, h.Clock.now()); err != nil {
		return dto.BookingTransition{}, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return dto.BookingTransition{}, domainbooking.Persistence("save booking", err)
	}
	if err := recordEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
		return dto.BookingTransition{}, err
	}
	loggerOrDefault(h.Logger).InfoContext(ctx, "payment receipt submitted", "booking_id", b.ID, "guest_id", b.GuestID)
	return dto.MapTransition(b), nil
}

var _ commands.Handler[SubmitPaymentReceiptCommand, dto.BookingTransition] = (*SubmitPaymentReceiptHandler)(nil)
