package booking

import (
	"context"
	"errors"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainprofiles "staybook/internal/domain/profiles"
)

const GetPaymentInstructionsKey = "booking.payment_instructions"

type GetPaymentInstructionsQuery struct {
	BookingID string `validate:"required"`
	ViewerID  string `validate:"required"`
}

func (q GetPaymentInstructionsQuery) Key() string { return GetPaymentInstructionsKey }

func (q GetPaymentInstructionsQuery) ActorID() string { return q.ViewerID }

type GetPaymentInstructionsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetPaymentInstructionsHandler) Handle(ctx context.Context, q GetPaymentInstructionsQuery) (dto.PaymentInstructions, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.PaymentInstructions{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.PaymentInstructions{}, domainbooking.Persistence("load booking", err)
	}
	_, hostID, err := hostOf(execCtx, unit.Listings(), b.ListingID)
	if err != nil {
		return dto.PaymentInstructions{}, err
	}
	if !b.VisibleTo(q.ViewerID, hostID) {
		return dto.PaymentInstructions{}, domainbooking.ErrUnauthorized
	}

	profile, err := unit.Profiles().ByUser(execCtx, hostID)
	if errors.Is(err, domainprofiles.ErrProfileNotFound) {
		return dto.PaymentInstructions{}, domainprofiles.ErrBankDetailsMissing
	}
	if err != nil {
		return dto.PaymentInstructions{}, domainbooking.Persistence("load host profile", err)
	}
	bank, err := profile.PayoutAccount()
	if err != nil {
		return dto.PaymentInstructions{}, err
	}

	return dto.PaymentInstructions{
		BookingID:           string(b.ID),
		Advance:             dto.MapMoney(b.Advance),
		Total:               dto.MapMoney(b.Total),
		BankName:            bank.BankName,
		AccountNumber:       bank.AccountNumber,
		MaskedAccountNumber: domainprofiles.MaskAccountNumber(bank.AccountNumber),
		AccountHolder:       bank.AccountHolder,
		Branch:              bank.Branch,
		Text:                domainprofiles.PaymentInstructions(b.Advance, bank),
	}, nil
}

var _ queries.Handler[GetPaymentInstructionsQuery, dto.PaymentInstructions] = (*GetPaymentInstructionsHandler)(nil)
