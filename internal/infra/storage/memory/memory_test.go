package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"staybook/internal/app/middleware"
	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func jan(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }

func newBooking(id string, in, out int, created time.Time) *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:        domainbooking.BookingID(id),
		ListingID: "listing-1",
		GuestID:   "guest-1",
		Range:     daterange.DateRange{CheckIn: jan(in), CheckOut: jan(out)},
		Total:     money.Must(1000, "LKR"),
		Status:    domainbooking.StatusPending,
		CreatedAt: created,
	}
}

func TestBookingRepository_SaveIsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()
	if err := repo.Insert(ctx, newBooking("b1", 1, 4, jan(1))); err != nil {
		t.Fatalf("insert: %v", err)
	}

	first, _ := repo.ByID(ctx, "b1")
	second, _ := repo.ByID(ctx, "b1")
	first.Status = domainbooking.StatusPaymentSubmitted
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}
	second.Status = domainbooking.StatusCancelled
	if err := repo.Save(ctx, second); !errors.Is(err, domainbooking.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}

	stored, _ := repo.ByID(ctx, "b1")
	if stored.Status != domainbooking.StatusPaymentSubmitted || stored.Version != 2 {
		t.Fatalf("unexpected stored booking status=%s version=%d", stored.Status, stored.Version)
	}
	stored.Status = domainbooking.StatusConfirmed
	again, _ := repo.ByID(ctx, "b1")
	if again.Status != domainbooking.StatusPaymentSubmitted {
		t.Fatal("callers must not mutate stored bookings")
	}
	if _, err := repo.ByID(ctx, "missing"); !errors.Is(err, domainbooking.ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestBookingRepository_OverlappingSkipsCancelled(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()
	cancelled := newBooking("cancelled", 10, 15, jan(1))
	cancelled.Status = domainbooking.StatusCancelled
	for _, b := range []*domainbooking.Booking{cancelled, newBooking("active", 20, 25, jan(2))} {
		if err := repo.Insert(ctx, b); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, _ := repo.Overlapping(ctx, "listing-1", daterange.DateRange{CheckIn: jan(12), CheckOut: jan(22)})
	if len(got) != 1 || got[0].ID != "active" {
		t.Fatalf("expected only the active booking, got %v", got)
	}
	got, _ = repo.Overlapping(ctx, "listing-1", daterange.DateRange{CheckIn: jan(25), CheckOut: jan(27)})
	if len(got) != 0 {
		t.Fatalf("back-to-back stay must not overlap, got %v", got)
	}

	all, _ := repo.ListByListing(ctx, "listing-1")
	if len(all) != 2 || all[0].ID != "active" {
		t.Fatalf("expected newest first, got %v", all)
	}
}

func TestListingRepository_OrderSearchDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository()
	seed := []*domainlistings.Listing{
		{ID: "a-old", Host: "host-1", Title: "Old villa", Location: "Galle", Beds: 2, CreatedAt: jan(1)},
		{ID: "z-new", Host: "host-1", Title: "New cabin", Location: "Ella", Beds: 1, CreatedAt: jan(3)},
		{ID: "m-mid", Host: "host-2", Title: "Lagoon hut", Location: "Galle Fort", Beds: 4, CreatedAt: jan(2)},
	}
	for _, l := range seed {
		if err := repo.Save(ctx, l); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	hosted, _ := repo.ListByHost(ctx, "host-1")
	if len(hosted) != 2 || hosted[0].ID != "z-new" || hosted[1].ID != "a-old" {
		t.Fatalf("expected newest first, got %v", hosted)
	}

	result, err := repo.Search(ctx, domainlistings.SearchParams{Query: "galle", MinBeds: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.Total != 2 || result.Items[0].ID != "m-mid" || result.Items[1].ID != "a-old" {
		t.Fatalf("unexpected search result: %+v", result)
	}
	result, _ = repo.Search(ctx, domainlistings.SearchParams{Query: "cabin"})
	if result.Total != 1 || result.Items[0].ID != "z-new" {
		t.Fatalf("expected title match, got %+v", result)
	}

	if err := repo.Delete(ctx, "a-old"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.ByID(ctx, "a-old"); !errors.Is(err, domainlistings.ErrListingNotFound) {
		t.Fatalf("expected ErrListingNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "a-old"); !errors.Is(err, domainlistings.ErrListingNotFound) {
		t.Fatalf("expected ErrListingNotFound on second delete, got %v", err)
	}
}

func TestLocker_SerializesAndTimesOut(t *testing.T) {
	locker := NewLocker(50 * time.Millisecond)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "listing:1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := locker.Lock(ctx, "listing:1"); !errors.Is(err, policies.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	other, err := locker.Lock(ctx, "listing:2")
	if err != nil {
		t.Fatalf("independent key must not block: %v", err)
	}
	_ = other(ctx)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := locker.Lock(cancelled, "listing:1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	_ = unlock(ctx)
	_ = unlock(ctx)
	again, err := locker.Lock(ctx, "listing:1")
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	_ = again(ctx)
}

func TestLocker_MutualExclusion(t *testing.T) {
	locker := NewLocker(time.Second)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "listing:1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			_ = unlock(context.Background())
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxSeen)
	}
}

func TestLocker_ReleasesIdleSlots(t *testing.T) {
	locker := NewLocker(20 * time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		unlock, err := locker.Lock(ctx, fmt.Sprintf("listing:%d", i))
		if err != nil {
			t.Fatalf("lock: %v", err)
		}
		_ = unlock(ctx)
	}
	if n := locker.Len(); n != 0 {
		t.Fatalf("expected idle slots evicted, %d remain", n)
	}

	held, err := locker.Lock(ctx, "listing:busy")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := locker.Lock(ctx, "listing:busy"); !errors.Is(err, policies.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	if n := locker.Len(); n != 1 {
		t.Fatalf("held key must keep its slot after a timed-out waiter, got %d", n)
	}
	_ = held(ctx)
	if n := locker.Len(); n != 0 {
		t.Fatalf("expected slot evicted after release, %d remain", n)
	}
}

type captureNotifier struct{ names []string }

func (n *captureNotifier) Notify(_ context.Context, rec appoutbox.EventRecord) error {
	n.names = append(n.names, rec.Name)
	return nil
}

func TestOutbox_FlushDeliversInOrder(t *testing.T) {
	notifier := &captureNotifier{}
	box := NewOutbox(notifier)
	ctx := context.Background()
	_ = box.Add(ctx, appoutbox.EventRecord{Name: "booking.requested"})
	_ = box.Add(ctx, appoutbox.EventRecord{Name: "booking.payment_submitted"})
	if err := box.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(notifier.names) != 2 || notifier.names[0] != "booking.requested" {
		t.Fatalf("unexpected deliveries %v", notifier.names)
	}
	if err := box.Flush(ctx); err != nil || len(notifier.names) != 2 {
		t.Fatalf("second flush must deliver nothing new, got %v err=%v", notifier.names, err)
	}
	if len(box.Delivered()) != 2 {
		t.Fatalf("expected 2 delivered records, got %d", len(box.Delivered()))
	}
}

func TestIdempotencyStore_Expires(t *testing.T) {
	store := NewIdempotencyStore(time.Minute)
	current := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }
	_ = store.Save(context.Background(), appRecord("k", current))
	if _, ok, _ := store.Get(context.Background(), "k"); !ok {
		t.Fatal("expected fresh record")
	}
	current = current.Add(2 * time.Minute)
	if _, ok, _ := store.Get(context.Background(), "k"); ok {
		t.Fatal("expected expired record to be dropped")
	}
}

func appRecord(key string, at time.Time) middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{Key: key, OccurredAt: at}
}
