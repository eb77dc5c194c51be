package booking

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/faults"
	"staybook/internal/domain/shared/money"
)

var now = time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)

func newPending(t *testing.T, id ID, start time.Time, weeks int) *Booking {
	t.Helper()
	dr, err := daterange.New(start, start.AddDate(0, 0, 7*weeks))
	require.NoError(t, err)
	b, err := NewBooking(CreateParams{
		ID:          id,
		ApartmentID: "apt-1",
		Customer:    Customer{Name: " Ada ", Email: "Ada@Example.com"},
		Range:       dr,
		TotalPrice:  money.Cents(100000 * int64(weeks)),
		CreatedAt:   now,
	})
	require.NoError(t, err)
	return b
}

func eventNames(b *Booking) []string {
	var names []string
	for _, ev := range b.PendingEvents() {
		names = append(names, ev.EventName())
	}
	return names
}

func TestNewBookingStartsPending(t *testing.T) {
	b := newPending(t, "b-1", daterange.Day(2026, 1, 3), 2)
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, "Ada", b.Customer.Name)
	assert.Equal(t, "ada@example.com", b.Customer.Email)
	assert.Equal(t, money.Cents(0), b.AmountPaid)
	assert.False(t, b.Occupancy().Blocking)
	assert.Equal(t, []string{"booking.requested"}, eventNames(b))
}

func TestNewBookingValidatesInput(t *testing.T) {
	dr, err := daterange.New(daterange.Day(2026, 1, 3), daterange.Day(2026, 1, 10))
	require.NoError(t, err)
	base := CreateParams{ID: "b", ApartmentID: "apt", Customer: Customer{Name: "Ada", Email: "ada@example.com"}, Range: dr, TotalPrice: money.Cents(1)}

	p := base
	p.Customer.Email = "not-an-email"
	_, err = NewBooking(p)
	assert.ErrorIs(t, err, ErrCustomerEmail)

	p = base
	p.Customer.Name = ""
	_, err = NewBooking(p)
	assert.ErrorIs(t, err, ErrCustomerName)

	p = base
	p.TotalPrice = money.Money{}
	_, err = NewBooking(p)
	assert.ErrorIs(t, err, faults.ErrValidation)
}

func TestConfirmIsGuardedByStatus(t *testing.T) {
	b := newPending(t, "b-1", daterange.Day(2026, 1, 3), 2)
	b.ClearEvents()

	require.NoError(t, b.Confirm(money.Cents(250000), "contracts/b-1.pdf", now))
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, money.Cents(250000), b.TotalPrice)
	assert.Equal(t, "contracts/b-1.pdf", b.ContractRef)
	assert.True(t, b.Occupancy().Blocking)

	err := b.Confirm(money.Cents(250000), "", now)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.ErrorIs(t, err, faults.ErrState)
	assert.ErrorIs(t, b.Reject("", now), ErrAlreadyResolved)
	assert.Equal(t, []string{"booking.confirmed"}, eventNames(b))
}

func TestCancelFromPendingAndConfirmedOnly(t *testing.T) {
	pending := newPending(t, "p", daterange.Day(2026, 1, 3), 1)
	require.NoError(t, pending.Cancel(now))
	assert.Equal(t, StatusCancelled, pending.Status)
	assert.ErrorIs(t, pending.Cancel(now), ErrInvalidTransition)

	confirmed := newPending(t, "c", daterange.Day(2026, 1, 3), 1)
	require.NoError(t, confirmed.Confirm(money.Cents(100000), "", now))
	require.NoError(t, confirmed.Cancel(now))
	assert.False(t, confirmed.Occupancy().Blocking)

	rejected := newPending(t, "r", daterange.Day(2026, 1, 3), 1)
	require.NoError(t, rejected.Reject("c", now))
	assert.ErrorIs(t, rejected.Cancel(now), faults.ErrState)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusConfirmed.CanTransitionTo(StatusRejected))
	assert.False(t, StatusRejected.CanTransitionTo(StatusPending))
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())

	s, err := ParseStatus(" Confirmed ")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, s)
	_, err = ParseStatus("archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func decode(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &fields))
	return fields
}

func TestPatchDropsIdentityFieldsSilently(t *testing.T) {
	b := newPending(t, "b-1", daterange.Day(2026, 1, 3), 1)
	b.ClearEvents()
	created := b.CreatedAt

	p, err := DecodePatch(decode(t, `{"id":"other","apartment_id":"apt-9","created_at":"2020-01-01","amount_paid":50000}`), "EUR", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []string{"apartment_id", "created_at", "id"}, p.Ignored)

	changed, err := b.ApplyPatch(p, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{FieldAmountPaid}, changed)
	assert.Equal(t, ID("b-1"), b.ID)
	assert.Equal(t, "apt-1", string(b.ApartmentID))
	assert.Equal(t, created, b.CreatedAt)
	assert.Equal(t, money.Cents(50000), b.AmountPaid)
	assert.Equal(t, []string{"booking.updated"}, eventNames(b))
}

func TestPatchRejectsNonWhitelistedFields(t *testing.T) {
	for _, body := range []string{`{"status":"confirmed"}`, `{"total_price":1}`, `{"start_date":"2026-01-10"}`} {
		_, err := DecodePatch(decode(t, body), "EUR", time.UTC)
		assert.ErrorIs(t, err, ErrFieldNotUpdatable, body)
		assert.ErrorIs(t, err, faults.ErrValidation, body)
	}
	_, err := DecodePatch(decode(t, `{"amount_paid":-5}`), "EUR", time.UTC)
	assert.ErrorIs(t, err, ErrInvalidFieldValue)
	_, err = DecodePatch(decode(t, `{"arrival_mail_date":"tomorrow"}`), "EUR", time.UTC)
	assert.ErrorIs(t, err, ErrInvalidFieldValue)
}

func TestPatchSetsAndClearsMessagesAndDates(t *testing.T) {
	b := newPending(t, "b-1", daterange.Day(2026, 1, 3), 1)
	p, err := DecodePatch(decode(t, `{"custom_arrival_message":"Hi {{name}}","arrival_mail_date":"2026-01-01","departure_mail_date":null}`), "EUR", time.UTC)
	require.NoError(t, err)

	changed, err := b.ApplyPatch(p, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{FieldCustomArrivalMessage, FieldArrivalMailDate}, changed)
	require.NotNil(t, b.ArrivalMailDate)
	assert.Equal(t, daterange.Day(2026, 1, 1), *b.ArrivalMailDate)

	p, err = DecodePatch(decode(t, `{"arrival_mail_date":null,"custom_arrival_message":null}`), "EUR", time.UTC)
	require.NoError(t, err)
	changed, err = b.ApplyPatch(p, now)
	require.NoError(t, err)
	assert.Len(t, changed, 2)
	assert.Nil(t, b.ArrivalMailDate)
	assert.Empty(t, b.CustomArrivalMessage)

	changed, err = b.ApplyPatch(p, now)
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestReminderDue(t *testing.T) {
	b := newPending(t, "b-1", daterange.Day(2026, 1, 3), 2)
	dayBefore := daterange.Day(2026, 1, 2)
	assert.False(t, b.ReminderDue(ReminderArrival, dayBefore), "pending bookings get no reminders")

	require.NoError(t, b.Confirm(money.Cents(200000), "", now))
	assert.True(t, b.ReminderDue(ReminderArrival, dayBefore))
	assert.False(t, b.ReminderDue(ReminderArrival, daterange.Day(2026, 1, 1)))
	assert.False(t, b.ReminderDue(ReminderParking, dayBefore), "no parking booked")
	assert.True(t, b.ReminderDue(ReminderDeparture, daterange.Day(2026, 1, 16)))

	scheduled := daterange.Day(2025, 12, 28)
	b.ArrivalMailDate = &scheduled
	b.HasParking = true
	assert.False(t, b.ReminderDue(ReminderArrival, dayBefore))
	assert.True(t, b.ReminderDue(ReminderArrival, scheduled))
	assert.True(t, b.ReminderDue(ReminderParking, scheduled))

	require.NoError(t, b.MarkReminderSent(ReminderArrival, now))
	assert.False(t, b.ReminderDue(ReminderArrival, scheduled))
	assert.ErrorIs(t, b.MarkReminderSent(ReminderArrival, now), ErrReminderAlreadySent)
	assert.ErrorIs(t, b.MarkReminderSent("checkout", now), ErrUnknownReminder)
}
