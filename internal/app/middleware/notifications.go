package middleware

import (
	"context"

	"staybook/internal/app/commands"
	"staybook/internal/app/notify"
)

// Notifications gives every command a batch and submits it only after the command,
// including its commit, succeeded.
func Notifications(sub notify.Submitter) CommandMiddleware {
	if sub == nil {
		panic("middleware: notification submitter required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			execCtx, batch := notify.WithBatch(ctx)
			res, err := next.Dispatch(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			if items := batch.Items(); len(items) > 0 {
				sub.Submit(items)
			}
			return res, nil
		})
	}
}
