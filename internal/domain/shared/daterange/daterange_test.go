package daterange

import (
	"errors"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustRange(t *testing.T, in, out time.Time) DateRange {
	t.Helper()
	dr, err := New(in, out)
	if err != nil {
		t.Fatalf("New(%v, %v): %v", in, out, err)
	}
	return dr
}

func TestNew_RejectsEmptyAndReversedRanges(t *testing.T) {
	cases := []struct {
		name     string
		in, out  time.Time
		wantFail bool
	}{
		{"same day", day(2025, 1, 10), day(2025, 1, 10), true},
		{"reversed", day(2025, 1, 12), day(2025, 1, 10), true},
		{"zero check-in", time.Time{}, day(2025, 1, 10), true},
		{"same day different hours", day(2025, 1, 10).Add(2 * time.Hour), day(2025, 1, 10).Add(20 * time.Hour), true},
		{"one night", day(2025, 1, 10), day(2025, 1, 11), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.in, tc.out)
			if tc.wantFail && !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("expected ErrInvalidRange, got %v", err)
			}
			if !tc.wantFail && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNew_KeepsCalendarDateOfLocalTime(t *testing.T) {
	colombo := time.FixedZone("IST", 5*3600+1800)
	in := time.Date(2025, 1, 10, 1, 0, 0, 0, colombo)
	out := time.Date(2025, 1, 12, 23, 0, 0, 0, colombo)
	dr := mustRange(t, in, out)
	if !dr.CheckIn.Equal(day(2025, 1, 10)) || !dr.CheckOut.Equal(day(2025, 1, 12)) {
		t.Fatalf("unexpected normalization: %s", dr)
	}
	if dr.Nights() != 2 {
		t.Fatalf("expected 2 nights, got %d", dr.Nights())
	}
}

func TestNights(t *testing.T) {
	dr := mustRange(t, day(2025, 1, 1), day(2025, 1, 4))
	if got := dr.Nights(); got != 3 {
		t.Fatalf("expected 3 nights, got %d", got)
	}
	across := mustRange(t, day(2024, 12, 30), day(2025, 1, 2))
	if got := across.Nights(); got != 3 {
		t.Fatalf("expected 3 nights across year end, got %d", got)
	}
	if got := (DateRange{}).Nights(); got != 0 {
		t.Fatalf("expected 0 nights for empty range, got %d", got)
	}
}

func TestOverlaps_HalfOpen(t *testing.T) {
	a := mustRange(t, day(2025, 1, 10), day(2025, 1, 15))
	b := mustRange(t, day(2025, 1, 15), day(2025, 1, 20))
	c := mustRange(t, day(2025, 1, 12), day(2025, 1, 18))
	inner := mustRange(t, day(2025, 1, 11), day(2025, 1, 12))

	if a.Overlaps(b) || b.Overlaps(a) {
		t.Fatal("back-to-back stays must not conflict")
	}
	if !a.Overlaps(c) || !c.Overlaps(a) {
		t.Fatal("partially overlapping stays must conflict")
	}
	if !a.Overlaps(inner) || !inner.Overlaps(a) {
		t.Fatal("contained stay must conflict")
	}
	if !a.Adjacent(b) {
		t.Fatal("expected adjacency")
	}
}

func TestMergeAndClip(t *testing.T) {
	a := mustRange(t, day(2025, 1, 10), day(2025, 1, 15))
	b := mustRange(t, day(2025, 1, 15), day(2025, 1, 20))
	merged, ok := a.Merge(b)
	if !ok || !merged.CheckIn.Equal(a.CheckIn) || !merged.CheckOut.Equal(b.CheckOut) {
		t.Fatalf("unexpected merge result %s ok=%v", merged, ok)
	}

	window := mustRange(t, day(2025, 1, 12), day(2025, 1, 31))
	clipped, ok := a.Clip(window)
	if !ok || !clipped.CheckIn.Equal(day(2025, 1, 12)) || !clipped.CheckOut.Equal(day(2025, 1, 15)) {
		t.Fatalf("unexpected clip result %s ok=%v", clipped, ok)
	}
	if _, ok := a.Clip(mustRange(t, day(2025, 2, 1), day(2025, 2, 2))); ok {
		t.Fatal("expected no clip outside window")
	}
}

func TestParse(t *testing.T) {
	dr, err := Parse("2025-01-01", "2025-01-04")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dr.String() != "2025-01-01/2025-01-04" {
		t.Fatalf("unexpected range %s", dr)
	}
	if _, err := Parse("2025-13-01", "2025-01-04"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := Parse("2025-01-04", "2025-01-04"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}
