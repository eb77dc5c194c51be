package uow

import (
	"context"

	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Apartments() domainapartment.Repository
	Bookings() domainbooking.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that bind driver state (sessions, tx handles)
// to the context seen by repositories.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}
