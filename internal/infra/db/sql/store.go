package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"staybook/internal/app/uow"
	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/faults"
)

var (
	ErrUnitClosed    = errors.New("sqlstore: unit of work already finished")
	ErrReadOnlyWrite = errors.New("sqlstore: write in read-only unit of work")
)

// Store runs every unit of work in one database transaction.
type Store struct {
	db   *gorm.DB
	wake chan struct{}
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, wake: make(chan struct{}, 1)}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Dialect() string { return s.db.Dialector.Name() }

// Ping backs the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, faults.Upstream("sqlstore: begin", tx.Error)
	}
	u := &unit{store: s, tx: tx, readOnly: opts.ReadOnly, locked: make(map[domainapartment.ID]struct{})}
	u.apartments = &apartmentRepository{unit: u}
	u.bookings = &bookingRepository{unit: u}
	return u, nil
}

type unit struct {
	store    *Store
	tx       *gorm.DB
	readOnly bool
	done     bool
	locked   map[domainapartment.ID]struct{}

	apartments *apartmentRepository
	bookings   *bookingRepository
}

func (u *unit) Apartments() domainapartment.Repository { return u.apartments }
func (u *unit) Bookings() domainbooking.Repository     { return u.bookings }

func (u *unit) Commit(context.Context) error {
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	return translate(u.tx.Commit().Error)
}

func (u *unit) Rollback(context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		return translate(err)
	}
	return nil
}

func (u *unit) conn(ctx context.Context) (*gorm.DB, error) {
	if u.done {
		return nil, ErrUnitClosed
	}
	return u.tx.WithContext(ctx), nil
}

func (u *unit) writer(ctx context.Context) (*gorm.DB, error) {
	if u.readOnly {
		return nil, ErrReadOnlyWrite
	}
	return u.conn(ctx)
}

// unitFrom returns the unit of this store bound to ctx, if any.
func (s *Store) unitFrom(ctx context.Context) (*unit, bool) {
	current, ok := uow.FromContext(ctx)
	if !ok {
		return nil, false
	}
	u, ok := current.(*unit)
	if !ok || u.store != s || u.done {
		return nil, false
	}
	return u, true
}

var _ uow.UoWFactory = (*Store)(nil)
