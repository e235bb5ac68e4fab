package profiles

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainprofiles "staybook/internal/domain/profiles"
)

const (
	UpdateBankDetailsKey = "me.bank_details.update"
	GetBankDetailsKey    = "me.bank_details.get"
)

type UpdateBankDetailsCommand struct {
	UserID        string `validate:"required"`
	BankName      string `validate:"required,max=120"`
	AccountNumber string `validate:"required,max=34"`
	AccountHolder string `validate:"required,max=120"`
	Branch        string `validate:"required,max=120"`
}

func (c UpdateBankDetailsCommand) Key() string { return UpdateBankDetailsKey }

func (c UpdateBankDetailsCommand) ActorID() string { return c.UserID }

type UpdateBankDetailsHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *UpdateBankDetailsHandler) Handle(ctx context.Context, cmd UpdateBankDetailsCommand) (dto.BankDetailsView, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.BankDetailsView{}, err
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}

	profile, err := unit.Profiles().ByUser(ctx, cmd.UserID)
	switch {
	case errors.Is(err, domainprofiles.ErrProfileNotFound):
		if profile, err = domainprofiles.NewHostProfile(cmd.UserID, now); err != nil {
			return dto.BankDetailsView{}, err
		}
	case err != nil:
		return dto.BankDetailsView{}, domainbooking.Persistence("load profile", err)
	}

	err = profile.UpdateBankDetails(domainprofiles.BankDetails{
		BankName:      cmd.BankName,
		AccountNumber: cmd.AccountNumber,
		AccountHolder: cmd.AccountHolder,
		Branch:        cmd.Branch,
	}, now)
	if err != nil {
		return dto.BankDetailsView{}, err
	}
	if err := unit.Profiles().Save(ctx, profile); err != nil {
		return dto.BankDetailsView{}, domainbooking.Persistence("save profile", err)
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, profile); err != nil {
		return dto.BankDetailsView{}, domainbooking.Persistence("record events", err)
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "bank details updated", "user_id", cmd.UserID)
	}
	return dto.MapBankDetails(profile), nil
}

type GetBankDetailsQuery struct {
	UserID string `validate:"required"`
}

func (q GetBankDetailsQuery) Key() string { return GetBankDetailsKey }

func (q GetBankDetailsQuery) ActorID() string { return q.UserID }

type GetBankDetailsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBankDetailsHandler) Handle(ctx context.Context, q GetBankDetailsQuery) (dto.BankDetailsView, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BankDetailsView{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	profile, err := unit.Profiles().ByUser(execCtx, q.UserID)
	if errors.Is(err, domainprofiles.ErrProfileNotFound) {
		return dto.BankDetailsView{}, domainprofiles.ErrBankDetailsMissing
	}
	if err != nil {
		return dto.BankDetailsView{}, domainbooking.Persistence("load profile", err)
	}
	if !profile.Bank.Valid() {
		return dto.BankDetailsView{}, domainprofiles.ErrBankDetailsMissing
	}
	return dto.MapBankDetails(profile), nil
}

var (
	_ commands.Handler[UpdateBankDetailsCommand, dto.BankDetailsView] = (*UpdateBankDetailsHandler)(nil)
	_ queries.Handler[GetBankDetailsQuery, dto.BankDetailsView]       = (*GetBankDetailsHandler)(nil)
)
