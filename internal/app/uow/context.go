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
	return unit, ok
}

// Bind prepares ctx for work inside unit: driver state first, then the unit itself.
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

// WithRollbackHooks returns a ctx that accepts OnRollback registrations and the function
// that runs them, last registered first.
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

// OnRollback registers fn to run if the surrounding unit of work does not commit.
// It reports false when ctx carries no hooks.
func OnRollback(ctx context.Context, fn func(context.Context)) bool {
	hooks, ok := ctx.Value(rollbackKey{}).(*rollbackHooks)
	if !ok {
		return false
	}
	hooks.mu.Lock()
	hooks.fns = append(hooks.fns, fn)
	hooks.mu.Unlock()
	return true
}
