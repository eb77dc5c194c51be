package mongo

import (
	"time"

	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type apartmentDocument struct {
	ID                   string    `bson:"_id"`
	Slug                 string    `bson:"slug"`
	Name                 string    `bson:"name"`
	Description          string    `bson:"description"`
	ChangeoverDay        int       `bson:"changeover_day"`
	DefaultRateCents     int64     `bson:"default_rate_cents"`
	ParkingWeeklyCents   *int64    `bson:"parking_weekly_cents,omitempty"`
	Currency             string    `bson:"currency"`
	ArrivalInstruction   string    `bson:"arrival_instruction"`
	DepartureInstruction string    `bson:"departure_instruction"`
	ParkingInstruction   string    `bson:"parking_instruction"`
	CreatedAt            time.Time `bson:"created_at"`
	UpdatedAt            time.Time `bson:"updated_at"`
	Version              int64     `bson:"version"`
}

func newApartmentDocument(a *domainapartment.Apartment) apartmentDocument {
	doc := apartmentDocument{
		ID:                   string(a.ID),
		Slug:                 a.Slug,
		Name:                 a.Name,
		Description:          a.Description,
		ChangeoverDay:        int(a.ChangeoverDay),
		DefaultRateCents:     a.DefaultRate.Amount,
		Currency:             a.DefaultRate.Currency,
		ArrivalInstruction:   a.ArrivalInstruction,
		DepartureInstruction: a.DepartureInstruction,
		ParkingInstruction:   a.ParkingInstruction,
		CreatedAt:            a.CreatedAt.UTC(),
		UpdatedAt:            a.UpdatedAt.UTC(),
		Version:              a.Version,
	}
	if a.ParkingWeekly != nil {
		cents := a.ParkingWeekly.Amount
		doc.ParkingWeeklyCents = &cents
	}
	return doc
}

func (d apartmentDocument) toAggregate() *domainapartment.Apartment {
	apt := &domainapartment.Apartment{
		ID:                   domainapartment.ID(d.ID),
		Slug:                 d.Slug,
		Name:                 d.Name,
		Description:          d.Description,
		ChangeoverDay:        time.Weekday(d.ChangeoverDay),
		DefaultRate:          money.Money{Amount: d.DefaultRateCents, Currency: d.Currency},
		ArrivalInstruction:   d.ArrivalInstruction,
		DepartureInstruction: d.DepartureInstruction,
		ParkingInstruction:   d.ParkingInstruction,
		CreatedAt:            d.CreatedAt.UTC(),
		UpdatedAt:            d.UpdatedAt.UTC(),
		Version:              d.Version,
	}
	if d.ParkingWeeklyCents != nil {
		apt.ParkingWeekly = &money.Money{Amount: *d.ParkingWeeklyCents, Currency: d.Currency}
	}
	return apt
}

type seasonalRateDocument struct {
	ApartmentID string    `bson:"apartment_id"`
	WeekStart   time.Time `bson:"week_start"`
	PriceCents  int64     `bson:"price_cents"`
	Currency    string    `bson:"currency"`
}

func (d seasonalRateDocument) toDomain() domainapartment.SeasonalRate {
	return domainapartment.SeasonalRate{
		ApartmentID: domainapartment.ID(d.ApartmentID),
		WeekStart:   daterange.Normalize(d.WeekStart),
		Price:       money.Money{Amount: d.PriceCents, Currency: d.Currency},
	}
}

type customerDocument struct {
	Name        string `bson:"name"`
	Email       string `bson:"email"`
	Phone       string `bson:"phone"`
	Address     string `bson:"address"`
	DateOfBirth string `bson:"date_of_birth"`
}

type bookingDocument struct {
	ID                     string           `bson:"_id"`
	ApartmentID            string           `bson:"apartment_id"`
	Customer               customerDocument `bson:"customer"`
	StartDate              time.Time        `bson:"start_date"`
	EndDate                time.Time        `bson:"end_date"`
	Status                 string           `bson:"status"`
	HasParking             bool             `bson:"has_parking"`
	TotalCents             int64            `bson:"total_cents"`
	PaidCents              int64            `bson:"paid_cents"`
	Currency               string           `bson:"currency"`
	ContractRef            string           `bson:"contract_ref"`
	CustomArrivalMessage   string           `bson:"custom_arrival_message"`
	CustomDepartureMessage string           `bson:"custom_departure_message"`
	ArrivalMailDate        *time.Time       `bson:"arrival_mail_date"`
	DepartureMailDate      *time.Time       `bson:"departure_mail_date"`
	SentArrival            bool             `bson:"sent_arrival"`
	SentDeparture          bool             `bson:"sent_departure"`
	SentParking            bool             `bson:"sent_parking"`
	CreatedAt              time.Time        `bson:"created_at"`
	UpdatedAt              time.Time        `bson:"updated_at"`
	Version                int64            `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:          string(b.ID),
		ApartmentID: string(b.ApartmentID),
		Customer: customerDocument{
			Name:        b.Customer.Name,
			Email:       b.Customer.Email,
			Phone:       b.Customer.Phone,
			Address:     b.Customer.Address,
			DateOfBirth: b.Customer.DateOfBirth,
		},
		StartDate:              b.Range.Start.UTC(),
		EndDate:                b.Range.End.UTC(),
		Status:                 string(b.Status),
		HasParking:             b.HasParking,
		TotalCents:             b.TotalPrice.Amount,
		PaidCents:              b.AmountPaid.Amount,
		Currency:               b.TotalPrice.Currency,
		ContractRef:            b.ContractRef,
		CustomArrivalMessage:   b.CustomArrivalMessage,
		CustomDepartureMessage: b.CustomDepartureMessage,
		ArrivalMailDate:        b.ArrivalMailDate,
		DepartureMailDate:      b.DepartureMailDate,
		SentArrival:            b.SentArrival,
		SentDeparture:          b.SentDeparture,
		SentParking:            b.SentParking,
		CreatedAt:              b.CreatedAt.UTC(),
		UpdatedAt:              b.UpdatedAt.UTC(),
		Version:                b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	b := &domainbooking.Booking{
		ID:          domainbooking.ID(d.ID),
		ApartmentID: domainapartment.ID(d.ApartmentID),
		Customer: domainbooking.Customer{
			Name:        d.Customer.Name,
			Email:       d.Customer.Email,
			Phone:       d.Customer.Phone,
			Address:     d.Customer.Address,
			DateOfBirth: d.Customer.DateOfBirth,
		},
		Range:                  daterange.DateRange{Start: daterange.Normalize(d.StartDate), End: daterange.Normalize(d.EndDate)},
		Status:                 domainbooking.Status(d.Status),
		HasParking:             d.HasParking,
		TotalPrice:             money.Money{Amount: d.TotalCents, Currency: d.Currency},
		AmountPaid:             money.Money{Amount: d.PaidCents, Currency: d.Currency},
		ContractRef:            d.ContractRef,
		CustomArrivalMessage:   d.CustomArrivalMessage,
		CustomDepartureMessage: d.CustomDepartureMessage,
		ArrivalMailDate:        normalizeOptional(d.ArrivalMailDate),
		DepartureMailDate:      normalizeOptional(d.DepartureMailDate),
		SentArrival:            d.SentArrival,
		SentDeparture:          d.SentDeparture,
		SentParking:            d.SentParking,
		CreatedAt:              d.CreatedAt.UTC(),
		UpdatedAt:              d.UpdatedAt.UTC(),
		Version:                d.Version,
	}
	return b
}

func normalizeOptional(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	n := daterange.Normalize(*t)
	return &n
}
