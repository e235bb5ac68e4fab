package availability

import (
	"testing"
	"time"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
)

func jan(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }

func stay(id string, status booking.Status, in, out int) *booking.Booking {
	return &booking.Booking{
		ID:        booking.BookingID(id),
		ListingID: "listing-1",
		Range:     daterange.DateRange{CheckIn: jan(in), CheckOut: jan(out)},
		Status:    status,
	}
}

func TestCalendar_IgnoresCancelledBookings(t *testing.T) {
	cal := FromBookings("listing-1", []*booking.Booking{
		stay("a", booking.StatusCancelled, 10, 15),
		stay("b", booking.StatusConfirmed, 20, 22),
	})
	if !cal.CanReserve(daterange.DateRange{CheckIn: jan(10), CheckOut: jan(15)}) {
		t.Fatal("cancelled booking must not block the range")
	}
	if cal.CanReserve(daterange.DateRange{CheckIn: jan(21), CheckOut: jan(23)}) {
		t.Fatal("confirmed booking must block the range")
	}
	if !cal.CanReserve(daterange.DateRange{CheckIn: jan(22), CheckOut: jan(25)}) {
		t.Fatal("check-in on another stay's check-out day must be allowed")
	}
}

func TestCalendar_WindowAndMerge(t *testing.T) {
	cal := FromBookings("listing-1", []*booking.Booking{
		stay("late", booking.StatusPending, 15, 20),
		stay("early", booking.StatusPaymentSubmitted, 10, 15),
		stay("other", booking.StatusConfirmed, 25, 27),
	})
	if cal.Blocks[0].Reference != "early" || cal.Blocks[0].Reason != ReasonSubmitted {
		t.Fatalf("expected blocks sorted by check-in, got %+v", cal.Blocks)
	}

	window := daterange.DateRange{CheckIn: jan(12), CheckOut: jan(26)}
	blocks := cal.Window(window)
	if len(blocks) != 3 || !blocks[0].Range.CheckIn.Equal(jan(12)) || !blocks[2].Range.CheckOut.Equal(jan(26)) {
		t.Fatalf("unexpected window %+v", blocks)
	}

	merged := cal.Unavailable(daterange.DateRange{})
	if len(merged) != 2 || !merged[0].CheckIn.Equal(jan(10)) || !merged[0].CheckOut.Equal(jan(20)) {
		t.Fatalf("unexpected merged ranges %+v", merged)
	}
	if refs := cal.Conflicts(daterange.DateRange{CheckIn: jan(14), CheckOut: jan(16)}); len(refs) != 2 {
		t.Fatalf("expected two conflicts, got %v", refs)
	}
}
