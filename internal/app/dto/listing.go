package dto

import (
	"time"

	domainavailability "staybook/internal/domain/availability"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

type ListingView struct {
	ID          string    `json:"id"`
	HostID      string    `json:"host_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location"`
	NightlyRate MoneyDTO  `json:"nightly_rate"`
	Beds        int       `json:"beds"`
	Baths       int       `json:"baths"`
	ImageURL    string    `json:"image_url,omitempty"`
	Facilities  []string  `json:"facilities"`
	Latitude    float64   `json:"latitude,omitempty"`
	Longitude   float64   `json:"longitude,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListingCatalog is one page of guest search results.
type ListingCatalog struct {
	Items  []ListingView `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type BookedRange struct {
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Reason    string `json:"reason"`
	BookingID string `json:"booking_id"`
}

type DateSpan struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ListingAvailability lists the nights a new request cannot use.
type ListingAvailability struct {
	ListingID   string        `json:"listing_id"`
	Window      *DateSpan     `json:"window,omitempty"`
	Booked      []BookedRange `json:"booked"`
	Unavailable []DateSpan    `json:"unavailable"`
}

func MapListing(l *domainlistings.Listing) ListingView {
	return ListingView{
		ID:          string(l.ID),
		HostID:      string(l.Host),
		Title:       l.Title,
		Description: l.Description,
		Location:    l.Location,
		NightlyRate: MapMoney(l.NightlyRate),
		Beds:        l.Beds,
		Baths:       l.Baths,
		ImageURL:    l.ImageURL,
		Facilities:  append([]string{}, l.Facilities...),
		Latitude:    l.Latitude,
		Longitude:   l.Longitude,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func MapCatalog(result domainlistings.SearchResult, params domainlistings.SearchParams) ListingCatalog {
	out := ListingCatalog{
		Items:  make([]ListingView, 0, len(result.Items)),
		Total:  result.Total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}
	for _, l := range result.Items {
		out.Items = append(out.Items, MapListing(l))
	}
	return out
}

func MapAvailability(cal *domainavailability.Calendar, window daterange.DateRange) ListingAvailability {
	out := ListingAvailability{
		ListingID:   string(cal.ListingID),
		Booked:      []BookedRange{},
		Unavailable: []DateSpan{},
	}
	if window.Validate() == nil {
		span := mapSpan(window)
		out.Window = &span
	}
	for _, block := range cal.Window(window) {
		out.Booked = append(out.Booked, BookedRange{
			CheckIn:   block.Range.CheckIn.Format(daterange.DateLayout),
			CheckOut:  block.Range.CheckOut.Format(daterange.DateLayout),
			Reason:    string(block.Reason),
			BookingID: block.Reference,
		})
	}
	for _, r := range cal.Unavailable(window) {
		out.Unavailable = append(out.Unavailable, mapSpan(r))
	}
	return out
}

func mapSpan(r daterange.DateRange) DateSpan {
	return DateSpan{From: r.CheckIn.Format(daterange.DateLayout), To: r.CheckOut.Format(daterange.DateLayout)}
}
