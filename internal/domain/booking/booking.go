package booking

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"staybook/internal/domain/apartment"
	"staybook/internal/domain/availability"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/faults"
	"staybook/internal/domain/shared/money"
)

var (
	ErrNotFound          = faults.NotFound("booking: not found")
	ErrAlreadyResolved   = faults.State("booking: already resolved")
	ErrInvalidTransition = faults.State("booking: invalid status transition")
	ErrIDRequired        = faults.Validation("booking: id is required")
	ErrCustomerName      = faults.Validation("booking: customer name is required")
	ErrCustomerEmail     = faults.Validation("booking: customer email is invalid")
	ErrInvalidTotal      = faults.Validation("booking: total must be positive")
	ErrInvalidStatus     = faults.Validation("booking: unknown status")

	ErrConcurrentUpdate error = faults.Conflict("booking: concurrent update")
)

type ID string

// Customer is the contact snapshot taken when the request is made.
type Customer struct {
	Name        string
	Email       string
	Phone       string
	Address     string
	DateOfBirth string
}

type Booking struct {
	ID                     ID
	ApartmentID            apartment.ID
	Customer               Customer
	Range                  daterange.DateRange
	Status                 Status
	HasParking             bool
	TotalPrice             money.Money
	AmountPaid             money.Money
	ContractRef            string
	CustomArrivalMessage   string
	CustomDepartureMessage string
	ArrivalMailDate        *time.Time
	DepartureMailDate      *time.Time
	SentArrival            bool
	SentDeparture          bool
	SentParking            bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
	Version                int64
	events.EventRecorder
}

type ListFilter struct {
	ApartmentID apartment.ID
	Statuses    []Status
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Booking, error)
	// Save persists the booking if its stored version still equals b.Version.
	Save(ctx context.Context, b *Booking) error
	List(ctx context.Context, filter ListFilter) ([]*Booking, error)
	// Overlapping returns the bookings of an apartment in one of statuses whose range
	// overlaps dr.
	Overlapping(ctx context.Context, apartmentID apartment.ID, dr daterange.DateRange, statuses ...Status) ([]*Booking, error)
}

type CreateParams struct {
	ID          ID
	ApartmentID apartment.ID
	Customer    Customer
	Range       daterange.DateRange
	HasParking  bool
	TotalPrice  money.Money
	ContractRef string
	CreatedAt   time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	customer, err := normalizeCustomer(params.Customer)
	if err != nil {
		return nil, err
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if params.TotalPrice.Amount <= 0 || params.TotalPrice.Currency == "" {
		return nil, ErrInvalidTotal
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:          params.ID,
		ApartmentID: params.ApartmentID,
		Customer:    customer,
		Range:       params.Range,
		Status:      StatusPending,
		HasParking:  params.HasParking,
		TotalPrice:  params.TotalPrice,
		AmountPaid:  money.Money{Amount: 0, Currency: params.TotalPrice.Currency},
		ContractRef: params.ContractRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.Record(BookingRequested{
		BookingID:   b.ID,
		ApartmentID: b.ApartmentID,
		Range:       b.Range,
		HasParking:  b.HasParking,
		Total:       b.TotalPrice,
		At:          now,
	})
	return b, nil
}

// Confirm moves a pending booking to confirmed with the price and contract computed at
// confirmation time.
func (b *Booking) Confirm(total money.Money, contractRef string, now time.Time) error {
	if b.Status != StatusPending {
		return ErrAlreadyResolved
	}
	if total.Amount <= 0 || total.Currency == "" {
		return ErrInvalidTotal
	}
	b.Status = StatusConfirmed
	b.TotalPrice = total
	if contractRef != "" {
		b.ContractRef = contractRef
	}
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, ApartmentID: b.ApartmentID, Range: b.Range, Total: b.TotalPrice, At: b.UpdatedAt})
	return nil
}

// Reject resolves a pending booking. supersededBy names the booking whose confirmation
// caused the rejection, if any.
func (b *Booking) Reject(supersededBy ID, now time.Time) error {
	if b.Status != StatusPending {
		return ErrAlreadyResolved
	}
	b.Status = StatusRejected
	b.UpdatedAt = now.UTC()
	b.Record(BookingRejected{BookingID: b.ID, ApartmentID: b.ApartmentID, SupersededBy: supersededBy, At: b.UpdatedAt})
	return nil
}

// Cancel ends a pending or confirmed booking and frees its range.
func (b *Booking) Cancel(now time.Time) error {
	if !b.Status.CanTransitionTo(StatusCancelled) {
		return ErrInvalidTransition
	}
	previous := b.Status
	b.Status = StatusCancelled
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, ApartmentID: b.ApartmentID, From: previous, At: b.UpdatedAt})
	return nil
}

// Occupancy describes the booking's claim for availability checks.
func (b *Booking) Occupancy() availability.Occupancy {
	return availability.Occupancy{BookingID: string(b.ID), Range: b.Range, Blocking: b.Status == StatusConfirmed}
}

// Paid reports whether the amount paid covers the total price.
func (b *Booking) Paid() bool {
	return b.AmountPaid.Amount >= b.TotalPrice.Amount
}

func Occupancies(bookings []*Booking) []availability.Occupancy {
	out := make([]availability.Occupancy, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.Occupancy())
	}
	return out
}

func normalizeCustomer(c Customer) (Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.DateOfBirth = strings.TrimSpace(c.DateOfBirth)
	if c.Name == "" {
		return Customer{}, ErrCustomerName
	}
	addr, err := mail.ParseAddress(c.Email)
	if err != nil || addr.Address != c.Email {
		return Customer{}, ErrCustomerEmail
	}
	return c, nil
}
