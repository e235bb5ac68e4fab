package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"staybook/internal/app/commands"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	domainprofiles "staybook/internal/domain/profiles"
)

type result struct {
	ID string `json:"id"`
}

type testCommand struct {
	key   string
	actor string
	lock  string
}

func (testCommand) Key() string              { return "test.command" }
func (c testCommand) IdempotencyKey() string { return c.key }
func (testCommand) ResultPrototype() any     { return &result{} }
func (c testCommand) ActorID() string        { return c.actor }
func (c testCommand) LockKey() string        { return c.lock }

type memoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]IdempotencyRecord
}

func (s *memoryIdempotencyStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *memoryIdempotencyStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = map[string]IdempotencyRecord{}
	}
	s.records[rec.Key] = rec
	return nil
}

func TestIdempotency_ReplaysSuccessfulResult(t *testing.T) {
	calls := 0
	base := commands.BusFunc(func(context.Context, commands.Command) (any, error) {
		calls++
		return result{ID: "booking-1"}, nil
	})
	bus := ChainCommands(base, Idempotency(&memoryIdempotencyStore{}, nil))

	cmd := testCommand{key: "k1", actor: "guest-1"}
	first, err := commands.Dispatch[testCommand, result](context.Background(), bus, cmd)
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	second, err := commands.Dispatch[testCommand, result](context.Background(), bus, cmd)
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if calls != 1 || first != second {
		t.Fatalf("expected replay, calls=%d first=%v second=%v", calls, first, second)
	}

	if _, err := bus.Dispatch(context.Background(), testCommand{key: "k1", actor: "guest-2"}); err != nil {
		t.Fatalf("dispatch for other actor: %v", err)
	}
	if calls != 2 {
		t.Fatalf("keys must be scoped per actor, calls=%d", calls)
	}
}

func TestIdempotency_DoesNotStoreFailures(t *testing.T) {
	calls := 0
	base := commands.BusFunc(func(context.Context, commands.Command) (any, error) {
		calls++
		if calls == 1 {
			return nil, domainbooking.ErrDateRangeUnavailable
		}
		return result{ID: "ok"}, nil
	})
	bus := ChainCommands(base, Idempotency(&memoryIdempotencyStore{}, nil))
	cmd := testCommand{key: "k", actor: "a"}
	if _, err := bus.Dispatch(context.Background(), cmd); !errors.Is(err, domainbooking.ErrDateRangeUnavailable) {
		t.Fatalf("expected domain error to pass through, got %v", err)
	}
	if _, err := bus.Dispatch(context.Background(), cmd); err != nil {
		t.Fatalf("retry must reach the handler, got %v", err)
	}
}

type fakeUnit struct {
	committed, rolledBack bool
	commitErr             error
}

func (u *fakeUnit) Listings() domainlistings.Repository { return nil }
func (u *fakeUnit) Bookings() domainbooking.Repository  { return nil }
func (u *fakeUnit) Profiles() domainprofiles.Repository { return nil }
func (u *fakeUnit) Commit(context.Context) error {
	u.committed = true
	return u.commitErr
}
func (u *fakeUnit) Rollback(context.Context) error {
	u.rolledBack = true
	return nil
}

type fakeFactory struct{ unit *fakeUnit }

func (f fakeFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	return f.unit, nil
}

func TestTransaction(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		unit := &fakeUnit{}
		base := commands.BusFunc(func(ctx context.Context, _ commands.Command) (any, error) {
			if _, ok := uow.FromContext(ctx); !ok {
				t.Fatal("expected unit of work in context")
			}
			return "ok", nil
		})
		bus := ChainCommands(base, Transaction(fakeFactory{unit: unit}, nil))
		if _, err := bus.Dispatch(context.Background(), testCommand{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !unit.committed || unit.rolledBack {
			t.Fatalf("expected commit only, got %+v", unit)
		}
	})
	t.Run("rolls back on failure", func(t *testing.T) {
		unit := &fakeUnit{}
		base := commands.BusFunc(func(context.Context, commands.Command) (any, error) {
			return nil, domainbooking.ErrInvalidTransition
		})
		bus := ChainCommands(base, Transaction(fakeFactory{unit: unit}, nil))
		if _, err := bus.Dispatch(context.Background(), testCommand{}); !errors.Is(err, domainbooking.ErrInvalidTransition) {
			t.Fatalf("expected handler error, got %v", err)
		}
		if unit.committed || !unit.rolledBack {
			t.Fatalf("expected rollback only, got %+v", unit)
		}
	})
	t.Run("commit failure is a persistence error", func(t *testing.T) {
		unit := &fakeUnit{commitErr: errors.New("network down")}
		base := commands.BusFunc(func(context.Context, commands.Command) (any, error) { return "ok", nil })
		bus := ChainCommands(base, Transaction(fakeFactory{unit: unit}, nil))
		_, err := bus.Dispatch(context.Background(), testCommand{})
		var pe *domainbooking.PersistenceError
		if !errors.As(err, &pe) {
			t.Fatalf("expected PersistenceError, got %v", err)
		}
	})
	t.Run("rollback hooks run newest first only when not committed", func(t *testing.T) {
		cases := []struct {
			name      string
			commitErr error
			handleErr error
			want      []string
		}{
			{"committed", nil, nil, nil},
			{"handler failed", nil, domainbooking.ErrInvalidTransition, []string{"second", "first"}},
			{"commit failed", errors.New("network down"), nil, []string{"second", "first"}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				var ran []string
				unit := &fakeUnit{commitErr: tc.commitErr}
				base := commands.BusFunc(func(ctx context.Context, _ commands.Command) (any, error) {
					for _, name := range []string{"first", "second"} {
						name := name
						if !uow.OnRollback(ctx, func(context.Context) { ran = append(ran, name) }) {
							t.Fatal("expected hooks to be accepted inside a transaction")
						}
					}
					return "ok", tc.handleErr
				})
				bus := ChainCommands(base, Transaction(fakeFactory{unit: unit}, nil))
				_, _ = bus.Dispatch(context.Background(), testCommand{})
				if len(ran) != len(tc.want) {
					t.Fatalf("expected hooks %v, got %v", tc.want, ran)
				}
				for i := range ran {
					if ran[i] != tc.want[i] {
						t.Fatalf("expected hooks %v, got %v", tc.want, ran)
					}
				}
			})
		}
	})
	t.Run("hooks are refused outside a transaction", func(t *testing.T) {
		if uow.OnRollback(context.Background(), func(context.Context) {}) {
			t.Fatal("expected OnRollback to report false without a unit")
		}
	})
}

type recordingOutbox struct{ flushed int }

func (o *recordingOutbox) Add(context.Context, outbox.EventRecord) error { return nil }
func (o *recordingOutbox) Flush(context.Context) error {
	o.flushed++
	return nil
}

func TestOutboxFlush_OnlyAfterSuccess(t *testing.T) {
	box := &recordingOutbox{}
	fail := true
	base := commands.BusFunc(func(context.Context, commands.Command) (any, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return nil, nil
	})
	bus := ChainCommands(base, OutboxFlush(box))
	_, _ = bus.Dispatch(context.Background(), testCommand{})
	fail = false
	_, _ = bus.Dispatch(context.Background(), testCommand{})
	if box.flushed != 1 {
		t.Fatalf("expected one flush, got %d", box.flushed)
	}
}

func TestRequireActor(t *testing.T) {
	bus := ChainCommands(commands.BusFunc(func(context.Context, commands.Command) (any, error) { return nil, nil }), Authorization(RequireActor{}))
	if _, err := bus.Dispatch(context.Background(), testCommand{actor: " "}); !errors.Is(err, domainbooking.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := bus.Dispatch(context.Background(), testCommand{actor: "guest-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type countingLocker struct {
	mu       sync.Mutex
	locked   map[string]bool
	released []string
	err      error
}

func (l *countingLocker) Lock(_ context.Context, key string) (policies.Unlock, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked == nil {
		l.locked = map[string]bool{}
	}
	l.locked[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.locked, key)
		l.released = append(l.released, key)
		return nil
	}, nil
}

func TestSerialize_HoldsLockAroundDownstream(t *testing.T) {
	locker := &countingLocker{}
	base := commands.BusFunc(func(context.Context, commands.Command) (any, error) {
		locker.mu.Lock()
		defer locker.mu.Unlock()
		if !locker.locked["listing:1"] {
			t.Fatal("expected lock held while handler runs")
		}
		return nil, nil
	})
	bus := ChainCommands(base, Serialize(locker, nil))
	if _, err := bus.Dispatch(context.Background(), testCommand{lock: "listing:1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locker.released) != 1 {
		t.Fatalf("expected release, got %v", locker.released)
	}

	locker.err = policies.ErrLockTimeout
	if _, err := bus.Dispatch(context.Background(), testCommand{lock: "listing:1"}); !errors.Is(err, policies.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
}

type fieldError struct{ field string }

func (e fieldError) Error() string { return e.field + " is required" }

type rejectingValidator struct{ seen []any }

func (v *rejectingValidator) Validate(_ context.Context, message any) error {
	v.seen = append(v.seen, message)
	if cmd, ok := message.(testCommand); ok && cmd.actor == "" {
		return fieldError{field: "actor"}
	}
	return nil
}

func TestValidation_NamesRejectedMessage(t *testing.T) {
	v := &rejectingValidator{}
	calls := 0
	base := commands.BusFunc(func(context.Context, commands.Command) (any, error) {
		calls++
		return nil, nil
	})
	bus := ChainCommands(base, Validation(v))

	_, err := bus.Dispatch(context.Background(), testCommand{})
	var rejected *RejectedError
	if !errors.As(err, &rejected) || rejected.Key != "test.command" {
		t.Fatalf("expected RejectedError for test.command, got %v", err)
	}
	var fe fieldError
	if !errors.As(err, &fe) || fe.field != "actor" {
		t.Fatalf("validator error must stay reachable, got %v", err)
	}
	if err.Error() != "test.command: actor is required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if calls != 0 {
		t.Fatal("rejected command must not reach the handler")
	}

	if _, err := bus.Dispatch(context.Background(), testCommand{actor: "guest-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 || len(v.seen) != 2 {
		t.Fatalf("expected one handled and two validated, got calls=%d seen=%d", calls, len(v.seen))
	}
}
