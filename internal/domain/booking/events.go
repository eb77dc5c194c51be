package booking

import (
	"time"

	"staybook/internal/domain/apartment"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID   ID                  `json:"booking_id"`
	ApartmentID apartment.ID        `json:"apartment_id"`
	Range       daterange.DateRange `json:"range"`
	HasParking  bool                `json:"has_parking"`
	Total       money.Money         `json:"total"`
	At          time.Time           `json:"at"`
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID   ID                  `json:"booking_id"`
	ApartmentID apartment.ID        `json:"apartment_id"`
	Range       daterange.DateRange `json:"range"`
	Total       money.Money         `json:"total"`
	At          time.Time           `json:"at"`
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingRejected struct {
	BookingID    ID           `json:"booking_id"`
	ApartmentID  apartment.ID `json:"apartment_id"`
	SupersededBy ID           `json:"superseded_by,omitempty"`
	At           time.Time    `json:"at"`
}

func (e BookingRejected) EventName() string     { return "booking.rejected" }
func (e BookingRejected) AggregateID() string   { return string(e.BookingID) }
func (e BookingRejected) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID   ID           `json:"booking_id"`
	ApartmentID apartment.ID `json:"apartment_id"`
	From        Status       `json:"from"`
	At          time.Time    `json:"at"`
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingUpdated struct {
	BookingID ID        `json:"booking_id"`
	Fields    []string  `json:"fields"`
	At        time.Time `json:"at"`
}

func (e BookingUpdated) EventName() string     { return "booking.updated" }
func (e BookingUpdated) AggregateID() string   { return string(e.BookingID) }
func (e BookingUpdated) OccurredAt() time.Time { return e.At }

type ReminderSent struct {
	BookingID ID           `json:"booking_id"`
	Kind      ReminderKind `json:"kind"`
	At        time.Time    `json:"at"`
}

func (e ReminderSent) EventName() string     { return "booking.reminder_marked" }
func (e ReminderSent) AggregateID() string   { return string(e.BookingID) }
func (e ReminderSent) OccurredAt() time.Time { return e.At }
