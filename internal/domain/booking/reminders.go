package booking

import (
	"time"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/faults"
)

type ReminderKind string

const (
	ReminderArrival   ReminderKind = "arrival"
	ReminderDeparture ReminderKind = "departure"
	ReminderParking   ReminderKind = "parking"
)

var ReminderKinds = []ReminderKind{ReminderArrival, ReminderDeparture, ReminderParking}

var (
	ErrReminderAlreadySent = faults.State("booking: reminder already sent")
	ErrUnknownReminder     = faults.Validation("booking: unknown reminder kind")
)

// ReminderDue reports whether a reminder should go out on today. A scheduled mail date
// wins; without one the reminder goes out the day before the anchor date. Parking
// follows the arrival timing.
func (b *Booking) ReminderDue(kind ReminderKind, today time.Time) bool {
	if b.Status != StatusConfirmed || b.ReminderSent(kind) {
		return false
	}
	today = daterange.Normalize(today)
	tomorrow := today.AddDate(0, 0, 1)
	switch kind {
	case ReminderArrival:
		return dueOn(b.ArrivalMailDate, b.Range.Start, today, tomorrow)
	case ReminderDeparture:
		return dueOn(b.DepartureMailDate, b.Range.End, today, tomorrow)
	case ReminderParking:
		return b.HasParking && dueOn(b.ArrivalMailDate, b.Range.Start, today, tomorrow)
	default:
		return false
	}
}

func (b *Booking) ReminderSent(kind ReminderKind) bool {
	switch kind {
	case ReminderArrival:
		return b.SentArrival
	case ReminderDeparture:
		return b.SentDeparture
	case ReminderParking:
		return b.SentParking
	default:
		return false
	}
}

// MarkReminderSent sets the flag for kind. It fails if the flag is already set so a
// reminder is claimed at most once.
func (b *Booking) MarkReminderSent(kind ReminderKind, now time.Time) error {
	if b.ReminderSent(kind) {
		return ErrReminderAlreadySent
	}
	switch kind {
	case ReminderArrival:
		b.SentArrival = true
	case ReminderDeparture:
		b.SentDeparture = true
	case ReminderParking:
		b.SentParking = true
	default:
		return ErrUnknownReminder
	}
	b.UpdatedAt = now.UTC()
	b.Record(ReminderSent{BookingID: b.ID, Kind: kind, At: b.UpdatedAt})
	return nil
}

func dueOn(scheduled *time.Time, anchor, today, tomorrow time.Time) bool {
	if scheduled != nil {
		return daterange.Normalize(*scheduled).Equal(today)
	}
	return daterange.Normalize(anchor).Equal(tomorrow)
}
