package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/middleware"
	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/faults"
	"staybook/internal/domain/shared/money"
)

var testNow = time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(DialectSQLite, ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(context.Background(), db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewStore(db)
}

func inUnit(t *testing.T, s *Store, fn func(ctx context.Context, u uow.UnitOfWork) error) error {
	t.Helper()
	u, err := s.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	ctx := uow.Bind(context.Background(), u)
	if err := fn(ctx, u); err != nil {
		require.NoError(t, u.Rollback(ctx))
		return err
	}
	return u.Commit(ctx)
}

func seedApartment(t *testing.T, s *Store) {
	t.Helper()
	parking := money.Cents(8000)
	apt, err := domainapartment.New(domainapartment.Params{
		ID: "apt-sea", Slug: "sea-view", Name: "Sea View", ChangeoverDay: time.Saturday,
		DefaultRate: money.Cents(100000), ParkingWeekly: &parking,
	}, testNow)
	require.NoError(t, err)
	require.NoError(t, inUnit(t, s, func(ctx context.Context, u uow.UnitOfWork) error {
		return u.Apartments().Save(ctx, apt)
	}))
}

func newBooking(t *testing.T, id string, start, end time.Time) *domainbooking.Booking {
	t.Helper()
	dr, err := daterange.New(start, end)
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:          domainbooking.ID(id),
		ApartmentID: "apt-sea",
		Customer:    domainbooking.Customer{Name: "Guest " + id, Email: id + "@example.com"},
		Range:       dr,
		TotalPrice:  money.Cents(100000),
		CreatedAt:   testNow,
	})
	require.NoError(t, err)
	return b
}

func TestApartmentRoundTripAndRates(t *testing.T) {
	s := newTestStore(t)
	seedApartment(t, s)

	require.NoError(t, inUnit(t, s, func(ctx context.Context, u uow.UnitOfWork) error {
		apt, err := u.Apartments().BySlug(ctx, "sea-view")
		require.NoError(t, err)
		assert.Equal(t, time.Saturday, apt.ChangeoverDay)
		require.NotNil(t, apt.ParkingWeekly)
		assert.Equal(t, int64(8000), apt.ParkingWeekly.Amount)
		assert.Equal(t, int64(1), apt.Version)

		rate, err := apt.NewSeasonalRate(daterange.Day(2026, 12, 19), money.Cents(150000))
		require.NoError(t, err)
		require.NoError(t, u.Apartments().SaveSeasonalRate(ctx, rate))
		rate.Price = money.Cents(160000)
		return u.Apartments().SaveSeasonalRate(ctx, rate)
	}))

	require.NoError(t, inUnit(t, s, func(ctx context.Context, u uow.UnitOfWork) error {
		rates, err := u.Apartments().SeasonalRates(ctx, "apt-sea")
		require.NoError(t, err)
		require.Len(t, rates, 1)
		assert.Equal(t, int64(160000), rates[0].Price.Amount)
		assert.Equal(t, daterange.Day(2026, 12, 19), rates[0].WeekStart)

		require.NoError(t, u.Apartments().DeleteSeasonalRate(ctx, "apt-sea", daterange.Day(2026, 12, 19)))
		assert.ErrorIs(t, u.Apartments().DeleteSeasonalRate(ctx, "apt-sea", daterange.Day(2026, 12, 19)), domainapartment.ErrSeasonalRateNotFound)
		return nil
	}))

	err := inUnit(t, s, func(ctx context.Context, u uow.UnitOfWork) error {
		_, err := u.Apartments().ByID(ctx, "missing")
		return err
	})
	assert.ErrorIs(t, err, domainapartment.ErrNotFound)
}

func TestConfirmedOverlapRejectedByDatabase(t *testing.T) {
	s := newTestStore(t)
	seedApartment(t, s)

	a := newBooking(t, "a", daterange.Day(2026, 1, 3), daterange.Day(2026, 1, 17))
	b := newBooking(t, "b", daterange.Day(2026, 1, 10), daterange.Day(2026, 1, 24))
	c := newBooking(t, "c", daterange.Day(2026, 1, 17), daterange.Day(2026, 1, 24))
	require.NoError(t, inUnit(t, s, func(ctx context.Context, u uow.UnitOfWork) error {
		for _, bk := range []*domainbooking.Booking{a, b, c} {
			if err := u.Bookings().Save(ctx, bk); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, a.Confirm(money.Cents(200000), "", testNow))
	require.NoError(t, inUnit(t, s, func(ctx context.Context, u uow.UnitOfWork) error {
		return u.Bookings().Save(ctx, a)
	}))

	require.NoError(t, b.Confirm(money.Cents(200000), "", testNow))
	err := inUnit(t, s, func(ctx context.Context, u uow.UnitOfWork) error {
		return u.Bookings().Save(ctx, b)
	})
	assert.ErrorIs(t, err, faults.ErrConflict)

	require.NoError(t, c.Confirm(money.Cents(100000), "", testNow))
	require.NoError(t, inUnit(t, s, func(ctx context.Context, u uow.UnitOfWork) error {
		return u.Bookings().Save(ctx, c)
	}), "back to back stays share no night")

	require.NoError(t, inUnit(t, s, func(ctx context.Context, u uow.UnitOfWork) error {
		dr, _ := daterange.New(daterange.Day(2026, 1, 16), daterange.Day(2026, 1, 18))
		got, err := u.Bookings().Overlapping(ctx, "apt-sea", dr, domainbooking.StatusConfirmed)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, domainbooking.ID("a"), got[0].ID)
		assert.Equal(t, domainbooking.ID("c"), got[1].ID)
		assert.Equal(t, daterange.Day(2026, 1, 17), got[0].Range.End)
		return nil
	}))
}

func TestStaleBookingSaveIsRejected(t *testing.T) {
	s := newTestStore(t)
	seedApartment(t, s)
	b := newBooking(t, "a", daterange.Day(2026, 1, 3), daterange.Day(2026, 1, 10))
	require.NoError(t, inUnit(t, s, func(ctx context.Context, u uow.UnitOfWork) error {
		return u.Bookings().Save(ctx, b)
	}))

	stale := *b
	require.NoError(t, b.Cancel(testNow))
	require.NoError(t, inUnit(t, s, func(ctx context.Context, u uow.UnitOfWork) error {
		return u.Bookings().Save(ctx, b)
	}))
	assert.Equal(t, int64(2), b.Version)

	err := inUnit(t, s, func(ctx context.Context, u uow.UnitOfWork) error {
		return u.Bookings().Save(ctx, &stale)
	})
	assert.ErrorIs(t, err, domainbooking.ErrConcurrentUpdate)

	ro, err := s.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	assert.ErrorIs(t, ro.Bookings().Save(context.Background(), b), ErrReadOnlyWrite)
	require.NoError(t, ro.Rollback(context.Background()))
}

func TestOutboxFollowsTransaction(t *testing.T) {
	s := newTestStore(t)
	box := s.Outbox()
	rec := func(id string) appoutbox.EventRecord {
		return appoutbox.EventRecord{ID: id, Name: "booking.confirmed", Payload: []byte(`{}`), OccurredAt: testNow, Aggregate: "a", Headers: map[string]string{"request_id": "r1"}}
	}

	err := inUnit(t, s, func(ctx context.Context, _ uow.UnitOfWork) error {
		require.NoError(t, box.Add(ctx, rec("evt-rolled-back")))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	require.NoError(t, inUnit(t, s, func(ctx context.Context, _ uow.UnitOfWork) error {
		return box.Add(ctx, rec("evt-1"))
	}))

	msgs, err := box.Claim(context.Background(), "w1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "evt-1", msgs[0].ID)
	assert.Equal(t, "r1", msgs[0].Headers["request_id"])

	again, err := box.Claim(context.Background(), "w2", 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, box.MarkFailed(context.Background(), "evt-1", testNow, "broker down"))
	msgs, err = box.Claim(context.Background(), "w2", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, 1, msgs[0].Attempts)

	require.NoError(t, box.MarkSent(context.Background(), "evt-1"))
	pending, err := box.Pending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestLeaseAndIdempotency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.Lease("a").Acquire(ctx, "reminders:2026-01-03", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Lease("b").Acquire(ctx, "reminders:2026-01-03", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.Lease("b").Acquire(ctx, "reminders:2026-01-04", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	idem := NewIdempotencyStore(s.DB(), time.Hour)
	_, found, err := idem.Get(ctx, "booking.create:k1")
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, idem.Save(ctx, middleware.IdempotencyRecord{Key: "booking.create:k1", Payload: []byte(`{"id":"a"}`), OccurredAt: time.Now().UTC()}))
	got, found, err := idem.Get(ctx, "booking.create:k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"id":"a"}`, string(got.Payload))
}
