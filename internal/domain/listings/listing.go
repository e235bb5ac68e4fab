package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
)

var (
	ErrListingNotFound = errors.New("listings: listing not found")
	ErrIDRequired      = errors.New("listings: id is required")
	ErrHostRequired    = errors.New("listings: host is required")
	ErrTitleRequired   = errors.New("listings: title is required")
	ErrNightlyRate     = errors.New("listings: nightly rate must be non-negative")
	ErrRoomsCount      = errors.New("listings: beds and baths must be non-negative")
	ErrListingInUse    = errors.New("listings: listing has bookings that are not cancelled")
)

type ListingID string
type HostID string

type Listing struct {
	ID          ListingID
	Host        HostID
	Title       string
	Description string
	Location    string
	NightlyRate money.Money
	Beds        int
	Baths       int
	ImageURL    string
	Facilities  []string
	Latitude    float64
	Longitude   float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	ListByHost(ctx context.Context, host HostID) ([]*Listing, error)
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
	Delete(ctx context.Context, id ListingID) error
}

type CreateListingParams struct {
	ID          ListingID
	Host        HostID
	Title       string
	Description string
	Location    string
	NightlyRate money.Money
	Beds        int
	Baths       int
	ImageURL    string
	Facilities  []string
	Latitude    float64
	Longitude   float64
	Now         time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, ErrHostRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if params.NightlyRate.IsNegative() {
		return nil, ErrNightlyRate
	}
	if params.NightlyRate.Currency == "" {
		params.NightlyRate.Currency = money.DefaultCurrency
	}
	if params.Beds < 0 || params.Baths < 0 {
		return nil, ErrRoomsCount
	}

	listing := &Listing{
		ID:          params.ID,
		Host:        params.Host,
		Title:       strings.TrimSpace(params.Title),
		Description: strings.TrimSpace(params.Description),
		Location:    strings.TrimSpace(params.Location),
		NightlyRate: params.NightlyRate,
		Beds:        params.Beds,
		Baths:       params.Baths,
		ImageURL:    strings.TrimSpace(params.ImageURL),
		Facilities:  compact(params.Facilities),
		Latitude:    params.Latitude,
		Longitude:   params.Longitude,
		CreatedAt:   params.Now.UTC(),
		UpdatedAt:   params.Now.UTC(),
	}
	listing.Record(ListingCreatedEvent{ListingID: listing.ID, HostID: listing.Host, NightlyRate: listing.NightlyRate, At: listing.CreatedAt})
	return listing, nil
}

type UpdateListingParams struct {
	Title       string
	Description string
	Location    string
	NightlyRate money.Money
	Beds        int
	Baths       int
	ImageURL    string
	Facilities  []string
	Latitude    float64
	Longitude   float64
	Now         time.Time
}

// Update replaces the editable attributes. Host, id and creation time never change.
func (l *Listing) Update(params UpdateListingParams) error {
	if strings.TrimSpace(params.Title) == "" {
		return ErrTitleRequired
	}
	if params.NightlyRate.IsNegative() {
		return ErrNightlyRate
	}
	if params.NightlyRate.Currency == "" {
		params.NightlyRate.Currency = l.NightlyRate.Currency
	}
	if params.Beds < 0 || params.Baths < 0 {
		return ErrRoomsCount
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	l.Title = strings.TrimSpace(params.Title)
	l.Description = strings.TrimSpace(params.Description)
	l.Location = strings.TrimSpace(params.Location)
	l.NightlyRate = params.NightlyRate
	l.Beds = params.Beds
	l.Baths = params.Baths
	l.ImageURL = strings.TrimSpace(params.ImageURL)
	l.Facilities = compact(params.Facilities)
	l.Latitude = params.Latitude
	l.Longitude = params.Longitude
	l.UpdatedAt = now.UTC()
	l.Record(ListingUpdatedEvent{ListingID: l.ID, HostID: l.Host, NightlyRate: l.NightlyRate, At: l.UpdatedAt})
	return nil
}

// MarkDeleted records the removal; the repository drops the document.
func (l *Listing) MarkDeleted(now time.Time) {
	l.Record(ListingDeletedEvent{ListingID: l.ID, HostID: l.Host, At: now.UTC()})
}

// HostedBy reports whether actorID owns the listing.
func (l *Listing) HostedBy(actorID string) bool {
	return actorID != "" && string(l.Host) == actorID
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
