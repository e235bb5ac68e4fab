package memory

import (
	"context"
	"sort"
	"sync"

	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	domainprofiles "staybook/internal/domain/profiles"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
)

// ListingRepository keeps listings in a map guarded by a RWMutex.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainlistings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{items: make(map[domainlistings.ListingID]*domainlistings.Listing)}
}

func (r *ListingRepository) ByID(_ context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrListingNotFound
	}
	return cloneListing(listing), nil
}

func (r *ListingRepository) Save(_ context.Context, listing *domainlistings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[listing.ID] = cloneListing(listing)
	return nil
}

func (r *ListingRepository) ListByHost(_ context.Context, host domainlistings.HostID) ([]*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainlistings.Listing, 0)
	for _, listing := range r.items {
		if listing.Host == host {
			out = append(out, cloneListing(listing))
		}
	}
	domainlistings.SortNewestFirst(out)
	return out, nil
}

func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	opts := params.Normalized()
	matches := make([]*domainlistings.Listing, 0, len(r.items))
	for _, listing := range r.items {
		if err := ctx.Err(); err != nil {
			return domainlistings.SearchResult{}, err
		}
		if opts.Matches(listing) {
			matches = append(matches, cloneListing(listing))
		}
	}
	domainlistings.SortNewestFirst(matches)
	return opts.Page(matches), nil
}

func (r *ListingRepository) Delete(_ context.Context, id domainlistings.ListingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domainlistings.ErrListingNotFound
	}
	delete(r.items, id)
	return nil
}

// BookingRepository stores copies of bookings so callers never share mutable state,
// which keeps the version compare-and-swap in Save meaningful.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (r *BookingRepository) ByID(_ context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) Insert(_ context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[b.ID]; exists {
		return domainbooking.ErrConcurrentModification
	}
	b.Version = 1
	r.items[b.ID] = cloneBooking(b)
	return nil
}

func (r *BookingRepository) Save(_ context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[b.ID]
	if !ok {
		return domainbooking.ErrBookingNotFound
	}
	if current.Version != b.Version {
		return domainbooking.ErrConcurrentModification
	}
	b.Version++
	r.items[b.ID] = cloneBooking(b)
	return nil
}

func (r *BookingRepository) Overlapping(_ context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool {
		return b.ListingID == listingID && b.Status.Blocking() && b.Range.Overlaps(dr)
	}), nil
}

func (r *BookingRepository) ListByGuest(_ context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool { return b.GuestID == guestID }), nil
}

func (r *BookingRepository) ListByListing(_ context.Context, listingID domainlistings.ListingID) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool { return b.ListingID == listingID }), nil
}

// filter returns matching copies ordered newest first.
func (r *BookingRepository) filter(match func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if match(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

type ProfileRepository struct {
	mu    sync.RWMutex
	items map[string]*domainprofiles.HostProfile
}

func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{items: make(map[string]*domainprofiles.HostProfile)}
}

func (r *ProfileRepository) ByUser(_ context.Context, userID string) (*domainprofiles.HostProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[userID]
	if !ok {
		return nil, domainprofiles.ErrProfileNotFound
	}
	c := *p
	c.EventRecorder = events.EventRecorder{}
	return &c, nil
}

func (r *ProfileRepository) Save(_ context.Context, p *domainprofiles.HostProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *p
	c.EventRecorder = events.EventRecorder{}
	r.items[p.UserID] = &c
	return nil
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	c := *b
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneListing(l *domainlistings.Listing) *domainlistings.Listing {
	c := *l
	c.Facilities = append([]string(nil), l.Facilities...)
	c.EventRecorder = events.EventRecorder{}
	return &c
}

var (
	_ domainlistings.Repository = (*ListingRepository)(nil)
	_ domainbooking.Repository  = (*BookingRepository)(nil)
	_ domainprofiles.Repository = (*ProfileRepository)(nil)
)
