package uow

import (
	"context"
	"errors"
	"sync"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

type ctxKey struct{}

func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok && unit != nil
}

// Require returns the unit of work carried by ctx or ErrUnitOfWorkMissing.
func Require(ctx context.Context) (UnitOfWork, error) {
	unit, ok := FromContext(ctx)
	if !ok {
		return nil, ErrUnitOfWorkMissing
	}
	return unit, nil
}

// Bind injects the unit's transactional context (if any) and stores the unit in it.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}

type rollbackKey struct{}

type rollbackHooks struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

// WithRollbackHooks lets code running inside a unit register compensations.
// The returned function runs them newest first and is meant for the rollback path.
func WithRollbackHooks(ctx context.Context) (context.Context, func(context.Context)) {
	hooks := &rollbackHooks{}
	run := func(ctx context.Context) {
		hooks.mu.Lock()
		fns := hooks.fns
		hooks.fns = nil
		hooks.mu.Unlock()
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i](ctx)
		}
	}
	return context.WithValue(ctx, rollbackKey{}, hooks), run
}

// OnRollback registers fn against the unit owning ctx. It reports false when
// nothing will ever run fn.
func OnRollback(ctx context.Context, fn func(context.Context)) bool {
	hooks, ok := ctx.Value(rollbackKey{}).(*rollbackHooks)
	if !ok || fn == nil {
		return false
	}
	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	hooks.fns = append(hooks.fns, fn)
	return true
}
