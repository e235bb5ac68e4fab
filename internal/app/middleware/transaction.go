package middleware

import (
	"context"

	"staybook/internal/app/commands"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction runs each command inside a unit of work committed only when the handler succeeds.
// Hooks registered with uow.OnRollback run after a rollback, including a failed commit.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, domainbooking.Persistence("begin unit of work", err)
			}
			execCtx, compensate := uow.WithRollbackHooks(uow.Bind(ctx, unit))
			committed := false
			defer func() {
				if !committed {
					_ = unit.Rollback(execCtx)
					compensate(context.WithoutCancel(ctx))
				}
			}()

			res, err := nextFn(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, domainbooking.Persistence("commit", err)
			}
			committed = true
			return res, nil
		})
	}
}
