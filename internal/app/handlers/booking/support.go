package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"staybook/internal/app/outbox"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/events"
)

const allStatusesFilterValue = "ALL"

var ErrInvalidStatusFilter = errors.New("booking: unknown status filter")

// Clock returns the current instant; tests substitute a fixed one.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

func recordEvents(ctx context.Context, box outbox.Outbox, enc outbox.EventEncoder, src events.Source) error {
	return domainbooking.Persistence("record events", outbox.Drain(ctx, box, enc, src))
}

// hostOf resolves the host of a listing; a missing listing has no host.
func hostOf(ctx context.Context, repo domainlistings.Repository, id domainlistings.ListingID) (*domainlistings.Listing, string, error) {
	listing, err := repo.ByID(ctx, id)
	if errors.Is(err, domainlistings.ErrListingNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", domainbooking.Persistence("load listing", err)
	}
	return listing, string(listing.Host), nil
}
