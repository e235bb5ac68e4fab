package availability

import (
	"sort"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

type BlockReason string

const (
	ReasonPending   BlockReason = "AWAITING_PAYMENT"
	ReasonSubmitted BlockReason = "AWAITING_VERIFICATION"
	ReasonConfirmed BlockReason = "CONFIRMED"
)

type Block struct {
	Range     daterange.DateRange
	Reason    BlockReason
	Reference string
}

// Calendar is the set of nights of a listing held by non-cancelled bookings.
type Calendar struct {
	ListingID listings.ListingID
	Blocks    []Block
}

// FromBookings builds a calendar from the bookings of one listing. Cancelled
// bookings and bookings of other listings are ignored.
func FromBookings(id listings.ListingID, bookings []*booking.Booking) *Calendar {
	c := &Calendar{ListingID: id}
	for _, b := range bookings {
		if b == nil || b.ListingID != id || !b.Status.Blocking() {
			continue
		}
		c.Blocks = append(c.Blocks, Block{Range: b.Range, Reason: reasonFor(b.Status), Reference: string(b.ID)})
	}
	sort.Slice(c.Blocks, func(i, j int) bool {
		return c.Blocks[i].Range.CheckIn.Before(c.Blocks[j].Range.CheckIn)
	})
	return c
}

func (c *Calendar) CanReserve(r daterange.DateRange) bool {
	return len(c.Conflicts(r)) == 0
}

// Conflicts returns the references of blocks overlapping r.
func (c *Calendar) Conflicts(r daterange.DateRange) []string {
	var refs []string
	for _, block := range c.Blocks {
		if block.Range.Overlaps(r) {
			refs = append(refs, block.Reference)
		}
	}
	return refs
}

// Window returns the blocks clipped to window. A zero window returns every block.
func (c *Calendar) Window(window daterange.DateRange) []Block {
	if window.Validate() != nil {
		return append([]Block(nil), c.Blocks...)
	}
	out := make([]Block, 0, len(c.Blocks))
	for _, block := range c.Blocks {
		clipped, ok := block.Range.Clip(window)
		if !ok {
			continue
		}
		block.Range = clipped
		out = append(out, block)
	}
	return out
}

// Unavailable merges overlapping and back-to-back blocks into contiguous ranges.
func (c *Calendar) Unavailable(window daterange.DateRange) []daterange.DateRange {
	blocks := c.Window(window)
	var merged []daterange.DateRange
	for _, block := range blocks {
		if n := len(merged); n > 0 {
			if m, ok := merged[n-1].Merge(block.Range); ok {
				merged[n-1] = m
				continue
			}
		}
		merged = append(merged, block.Range)
	}
	return merged
}

func reasonFor(status booking.Status) BlockReason {
	switch status {
	case booking.StatusPaymentSubmitted:
		return ReasonSubmitted
	case booking.StatusConfirmed:
		return ReasonConfirmed
	default:
		return ReasonPending
	}
}
