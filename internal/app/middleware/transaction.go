package middleware

import (
	"context"

	"staybook/internal/app/commands"
	"staybook/internal/app/uow"
	"staybook/internal/domain/shared/faults"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction runs each command inside a unit of work, committing only on success.
// Rollback hooks registered by the handler run after an abandoned unit is rolled back.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, faults.Upstream("uow: begin", err)
			}
			execCtx, runHooks := uow.WithRollbackHooks(uow.Bind(ctx, unit))
			committed := false
			defer func() {
				if !committed {
					_ = unit.Rollback(execCtx)
					runHooks(context.WithoutCancel(ctx))
				}
			}()

			res, err := next.Dispatch(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, faults.Upstream("uow: commit", err)
			}
			committed = true
			return res, nil
		})
	}
}
