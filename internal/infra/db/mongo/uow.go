package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	driversession "go.mongodb.org/mongo-driver/x/mongo/driver/session"

	"staybook/internal/app/uow"
	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/faults"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Store wires Mongo transactions into the generic UnitOfWork interface. Repositories
// read the session from the context, so every call must use the context bound by
// uow.Bind.
type Store struct {
	db         *mongo.Database
	apartments *ApartmentRepository
	bookings   *BookingRepository
	wake       chan struct{}
}

func NewStore(c *Client) *Store {
	return &Store{
		db:         c.DB,
		apartments: NewApartmentRepository(c.DB),
		bookings:   NewBookingRepository(c.DB),
		wake:       make(chan struct{}, 1),
	}
}

func (s *Store) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if s.db == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := s.db.Client().StartSession()
	if err != nil {
		return nil, faults.Upstream("mongo: start session", err)
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, faults.Upstream("mongo: start transaction", err)
	}
	return &Unit{session: session, readOnly: opts.ReadOnly, apartments: s.apartments, bookings: s.bookings}, nil
}

type Unit struct {
	session  mongo.Session
	readOnly bool
	done     bool

	apartments *ApartmentRepository
	bookings   *BookingRepository
}

func (u *Unit) Apartments() domainapartment.Repository { return u.apartments }

func (u *Unit) Bookings() domainbooking.Repository { return u.bookings }

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	defer u.session.EndSession(ctx)
	return translate(u.session.CommitTransaction(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	defer u.session.EndSession(ctx)
	if err := u.session.AbortTransaction(ctx); err != nil && !errors.Is(err, driversession.ErrAbortAfterCommit) {
		return translate(err)
	}
	return nil
}

// InjectContext makes the session visible to repositories called with ctx.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.UoWFactory      = (*Store)(nil)
	_ uow.ContextInjector = (*Unit)(nil)
)
