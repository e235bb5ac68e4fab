package memory

import (
	"context"
	"errors"

	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	domainprofiles "staybook/internal/domain/profiles"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	ListingsRepo domainlistings.Repository
	BookingsRepo domainbooking.Repository
	ProfilesRepo domainprofiles.Repository
}

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// NewFactory builds a factory over fresh repositories.
func NewFactory() Factory {
	return Factory{
		ListingsRepo: NewListingRepository(),
		BookingsRepo: NewBookingRepository(),
		ProfilesRepo: NewProfileRepository(),
	}
}

// Begin returns a unit without isolation: writes are visible immediately and
// Rollback does not undo them. Booking creation relies on the listing lock and
// transitions on the version check instead.
func (f Factory) Begin(_ context.Context, _ uow.TxOptions) (uow.UnitOfWork, error) {
	if f.ListingsRepo == nil || f.BookingsRepo == nil || f.ProfilesRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{listings: f.ListingsRepo, bookings: f.BookingsRepo, profiles: f.ProfilesRepo}, nil
}

type Unit struct {
	listings domainlistings.Repository
	bookings domainbooking.Repository
	profiles domainprofiles.Repository
}

func (u *Unit) Listings() domainlistings.Repository { return u.listings }

func (u *Unit) Bookings() domainbooking.Repository { return u.bookings }

func (u *Unit) Profiles() domainprofiles.Repository { return u.profiles }

func (u *Unit) Commit(context.Context) error { return nil }

func (u *Unit) Rollback(context.Context) error { return nil }
