package listings

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/money"
)

const (
	CreateListingKey = "host.listings.create"
	UpdateListingKey = "host.listings.update"
	DeleteListingKey = "host.listings.delete"
)

type CreateListingCommand struct {
	HostID      string `validate:"required"`
	Title       string `validate:"required,max=200"`
	Description string `validate:"max=5000"`
	Location    string `validate:"required"`
	NightlyRate int64  `validate:"gte=0,lte=1000000000000"`
	Currency    string `validate:"omitempty,len=3"`
	Beds        int    `validate:"gte=0"`
	Baths       int    `validate:"gte=0"`
	ImageURL    string `validate:"omitempty,url"`
	Facilities  []string
	Latitude    float64 `validate:"gte=-90,lte=90"`
	Longitude   float64 `validate:"gte=-180,lte=180"`
}

func (c CreateListingCommand) Key() string { return CreateListingKey }

func (c CreateListingCommand) ActorID() string { return c.HostID }

type CreateListingHandler struct {
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Logger   *slog.Logger
	Currency string
	Now      func() time.Time
}

func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (dto.ListingView, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.ListingView{}, err
	}
	currency := strings.TrimSpace(cmd.Currency)
	if currency == "" {
		currency = h.Currency
	}
	if currency == "" {
		currency = money.DefaultCurrency
	}
	rate, err := money.New(cmd.NightlyRate, currency)
	if err != nil {
		return dto.ListingView{}, err
	}
	now := nowFrom(h.Now)

	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:          domainlistings.ListingID(uuid.NewString()),
		Host:        domainlistings.HostID(cmd.HostID),
		Title:       cmd.Title,
		Description: cmd.Description,
		Location:    cmd.Location,
		NightlyRate: rate,
		Beds:        cmd.Beds,
		Baths:       cmd.Baths,
		ImageURL:    cmd.ImageURL,
		Facilities:  cmd.Facilities,
		Latitude:    cmd.Latitude,
		Longitude:   cmd.Longitude,
		Now:         now,
	})
	if err != nil {
		return dto.ListingView{}, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return dto.ListingView{}, domainbooking.Persistence("save listing", err)
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return dto.ListingView{}, domainbooking.Persistence("record events", err)
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "host listing created", "listing_id", listing.ID, "host_id", cmd.HostID)
	}
	return dto.MapListing(listing), nil
}

type UpdateListingCommand struct {
	HostID      string `validate:"required"`
	ListingID   string `validate:"required"`
	Title       string `validate:"required,max=200"`
	Description string `validate:"max=5000"`
	Location    string `validate:"required"`
	NightlyRate int64  `validate:"gte=0,lte=1000000000000"`
	Currency    string `validate:"omitempty,len=3"`
	Beds        int    `validate:"gte=0"`
	Baths       int    `validate:"gte=0"`
	ImageURL    string `validate:"omitempty,url"`
	Facilities  []string
	Latitude    float64 `validate:"gte=-90,lte=90"`
	Longitude   float64 `validate:"gte=-180,lte=180"`
}

func (c UpdateListingCommand) Key() string { return UpdateListingKey }

func (c UpdateListingCommand) ActorID() string { return c.HostID }

type UpdateListingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *UpdateListingHandler) Handle(ctx context.Context, cmd UpdateListingCommand) (dto.ListingView, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.ListingView{}, err
	}
	listing, err := loadHosted(ctx, unit, cmd.ListingID, cmd.HostID)
	if err != nil {
		return dto.ListingView{}, err
	}
	currency := strings.TrimSpace(cmd.Currency)
	if currency == "" {
		currency = listing.NightlyRate.Currency
	}
	rate, err := money.New(cmd.NightlyRate, currency)
	if err != nil {
		return dto.ListingView{}, err
	}

	if err := listing.Update(domainlistings.UpdateListingParams{
		Title:       cmd.Title,
		Description: cmd.Description,
		Location:    cmd.Location,
		NightlyRate: rate,
		Beds:        cmd.Beds,
		Baths:       cmd.Baths,
		ImageURL:    cmd.ImageURL,
		Facilities:  cmd.Facilities,
		Latitude:    cmd.Latitude,
		Longitude:   cmd.Longitude,
		Now:         nowFrom(h.Now),
	}); err != nil {
		return dto.ListingView{}, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return dto.ListingView{}, domainbooking.Persistence("save listing", err)
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return dto.ListingView{}, domainbooking.Persistence("record events", err)
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "host listing updated", "listing_id", listing.ID, "host_id", cmd.HostID)
	}
	return dto.MapListing(listing), nil
}

type DeleteListingCommand struct {
	HostID    string `validate:"required"`
	ListingID string `validate:"required"`
}

func (c DeleteListingCommand) Key() string { return DeleteListingKey }

func (c DeleteListingCommand) ActorID() string { return c.HostID }

type DeleteListingResult struct {
	ListingID string `json:"listing_id"`
	Deleted   bool   `json:"deleted"`
}

// DeleteListingHandler removes a listing once every booking on it is cancelled.
type DeleteListingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *DeleteListingHandler) Handle(ctx context.Context, cmd DeleteListingCommand) (DeleteListingResult, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return DeleteListingResult{}, err
	}
	listing, err := loadHosted(ctx, unit, cmd.ListingID, cmd.HostID)
	if err != nil {
		return DeleteListingResult{}, err
	}
	bookings, err := unit.Bookings().ListByListing(ctx, listing.ID)
	if err != nil {
		return DeleteListingResult{}, domainbooking.Persistence("list listing bookings", err)
	}
	for _, b := range bookings {
		if b.Status.Blocking() {
			return DeleteListingResult{}, domainlistings.ErrListingInUse
		}
	}

	listing.MarkDeleted(nowFrom(h.Now))
	if err := unit.Listings().Delete(ctx, listing.ID); err != nil {
		return DeleteListingResult{}, domainbooking.Persistence("delete listing", err)
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return DeleteListingResult{}, domainbooking.Persistence("record events", err)
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "host listing deleted", "listing_id", listing.ID, "host_id", cmd.HostID)
	}
	return DeleteListingResult{ListingID: string(listing.ID), Deleted: true}, nil
}

// LockKey shares the booking request lock, so a request cannot land between
// the booking check and the delete.
func (c DeleteListingCommand) LockKey() string {
	return "listing:" + strings.TrimSpace(c.ListingID)
}

func loadHosted(ctx context.Context, unit uow.UnitOfWork, listingID, hostID string) (*domainlistings.Listing, error) {
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(listingID))
	if err != nil {
		return nil, domainbooking.Persistence("load listing", err)
	}
	if !listing.HostedBy(hostID) {
		return nil, domainbooking.ErrUnauthorized
	}
	return listing, nil
}

func nowFrom(clock func() time.Time) time.Time {
	if clock != nil {
		return clock()
	}
	return time.Now()
}

var (
	_ commands.Handler[CreateListingCommand, dto.ListingView]      = (*CreateListingHandler)(nil)
	_ commands.Handler[UpdateListingCommand, dto.ListingView]      = (*UpdateListingHandler)(nil)
	_ commands.Handler[DeleteListingCommand, DeleteListingResult] = (*DeleteListingHandler)(nil)
)
