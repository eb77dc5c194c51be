package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/faults"
	"staybook/internal/domain/shared/money"
)

func TestBookingDocumentKeepsCalendarDays(t *testing.T) {
	dr, err := daterange.New(daterange.Day(2026, 12, 19), daterange.Day(2027, 1, 2))
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:          "b-1",
		ApartmentID: "apt-sea",
		Customer:    domainbooking.Customer{Name: "Ada", Email: "ada@example.com", Phone: "+33 6"},
		Range:       dr,
		HasParking:  true,
		TotalPrice:  money.Cents(250000),
		CreatedAt:   time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	mail := daterange.Day(2026, 12, 17)
	b.ArrivalMailDate = &mail

	got := newBookingDocument(b).toAggregate()
	assert.Equal(t, b.Range, got.Range)
	assert.Equal(t, b.Customer, got.Customer)
	assert.Equal(t, b.TotalPrice, got.TotalPrice)
	require.NotNil(t, got.ArrivalMailDate)
	assert.Equal(t, mail, *got.ArrivalMailDate)
	assert.Nil(t, got.DepartureMailDate)
}

func TestApartmentDocumentParkingIsOptional(t *testing.T) {
	apt, err := domainapartment.New(domainapartment.Params{ID: "apt-sea", Slug: "sea-view", Name: "Sea View", ChangeoverDay: time.Saturday, DefaultRate: money.Cents(100000)}, time.Now())
	require.NoError(t, err)
	got := newApartmentDocument(apt).toAggregate()
	assert.Nil(t, got.ParkingWeekly)
	assert.Equal(t, time.Saturday, got.ChangeoverDay)

	parking := money.Cents(8000)
	apt.ParkingWeekly = &parking
	got = newApartmentDocument(apt).toAggregate()
	require.NotNil(t, got.ParkingWeekly)
	assert.Equal(t, int64(8000), got.ParkingWeekly.Amount)
}

func TestTranslateMapsDriverErrors(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(domainbooking.ErrNotFound), faults.ErrNotFound)
	assert.ErrorIs(t, translate(mongo.CommandError{Code: writeConflictCode}), faults.ErrConflict)
	assert.ErrorIs(t, translate(mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}), faults.ErrConflict)
	assert.ErrorIs(t, translate(errors.New("socket closed")), faults.ErrUpstream)
}

// The remaining tests need a replica set, e.g.
// STAYBOOK_TEST_MONGO_URI=mongodb://localhost:27017/?replicaSet=rs0
func newIntegrationStore(t *testing.T) (*Client, *Store) {
	t.Helper()
	uri := os.Getenv("STAYBOOK_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("STAYBOOK_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	c, err := New(ctx, uri, fmt.Sprintf("staybook_test_%d", time.Now().UnixNano()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.DB.Drop(context.Background())
		_ = c.Close(context.Background())
	})
	require.NoError(t, c.EnsureIndexes(ctx))
	return c, NewStore(c)
}

func inUnit(t *testing.T, s *Store, fn func(ctx context.Context, u uow.UnitOfWork) error) error {
	t.Helper()
	u, err := s.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	ctx := uow.Bind(context.Background(), u)
	if err := fn(ctx, u); err != nil {
		_ = u.Rollback(ctx)
		return err
	}
	return u.Commit(ctx)
}

func TestConfirmedOverlapIsRejected(t *testing.T) {
	_, s := newIntegrationStore(t)
	apt, err := domainapartment.New(domainapartment.Params{ID: "apt-sea", Slug: "sea-view", Name: "Sea View", ChangeoverDay: time.Saturday, DefaultRate: money.Cents(100000)}, time.Now())
	require.NoError(t, err)
	require.NoError(t, inUnit(t, s, func(ctx context.Context, u uow.UnitOfWork) error { return u.Apartments().Save(ctx, apt) }))

	mk := func(id string, start, end time.Time) *domainbooking.Booking {
		dr, err := daterange.New(start, end)
		require.NoError(t, err)
		b, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID: domainbooking.ID(id), ApartmentID: "apt-sea",
			Customer: domainbooking.Customer{Name: "Guest", Email: id + "@example.com"},
			Range:    dr, TotalPrice: money.Cents(100000), CreatedAt: time.Now(),
		})
		require.NoError(t, err)
		return b
	}
	a := mk("a", daterange.Day(2026, 1, 3), daterange.Day(2026, 1, 17))
	b := mk("b", daterange.Day(2026, 1, 10), daterange.Day(2026, 1, 24))
	require.NoError(t, inUnit(t, s, func(ctx context.Context, u uow.UnitOfWork) error {
		if err := u.Bookings().Save(ctx, a); err != nil {
			return err
		}
		return u.Bookings().Save(ctx, b)
	}))

	require.NoError(t, a.Confirm(money.Cents(200000), "", time.Now()))
	require.NoError(t, inUnit(t, s, func(ctx context.Context, u uow.UnitOfWork) error { return u.Bookings().Save(ctx, a) }))

	require.NoError(t, b.Confirm(money.Cents(200000), "", time.Now()))
	err = inUnit(t, s, func(ctx context.Context, u uow.UnitOfWork) error { return u.Bookings().Save(ctx, b) })
	var conflict *faults.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, []string{"a"}, conflict.BookingIDs)
}

func TestOutboxClaimAndLease(t *testing.T) {
	c, s := newIntegrationStore(t)
	ctx := context.Background()
	box := s.Outbox()
	require.NoError(t, inUnit(t, s, func(ctx context.Context, _ uow.UnitOfWork) error {
		return box.Add(ctx, appRecord("evt-1"))
	}))
	msgs, err := box.Claim(ctx, "w1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NoError(t, box.MarkSent(ctx, "evt-1"))
	msgs, err = box.Claim(ctx, "w1", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	ok, err := NewLease(c, "a").Acquire(ctx, "reminders:2026-01-03", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = NewLease(c, "b").Acquire(ctx, "reminders:2026-01-03", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func appRecord(id string) appoutbox.EventRecord {
	return appoutbox.EventRecord{ID: id, Name: "booking.confirmed", Payload: []byte(`{}`), OccurredAt: time.Now().UTC(), Aggregate: "a"}
}
