package dto

import (
	"time"

	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
)

type CustomerDTO struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
}

type BookingDTO struct {
	ID                     string      `json:"id"`
	ApartmentID            string      `json:"apartment_id"`
	Customer               CustomerDTO `json:"customer"`
	StartDate              string      `json:"start_date"`
	EndDate                string      `json:"end_date"`
	Nights                 int         `json:"nights"`
	Status                 string      `json:"status"`
	HasParking             bool        `json:"has_parking"`
	TotalPrice             MoneyDTO    `json:"total_price"`
	AmountPaid             MoneyDTO    `json:"amount_paid"`
	Paid                   bool        `json:"paid"`
	ContractURL            string      `json:"contract_url,omitempty"`
	CustomArrivalMessage   string      `json:"custom_arrival_message,omitempty"`
	CustomDepartureMessage string      `json:"custom_departure_message,omitempty"`
	ArrivalMailDate        string      `json:"arrival_mail_date,omitempty"`
	DepartureMailDate      string      `json:"departure_mail_date,omitempty"`
	SentArrival            bool        `json:"sent_arrival"`
	SentDeparture          bool        `json:"sent_departure"`
	SentParking            bool        `json:"sent_parking"`
	CreatedAt              time.Time   `json:"created_at"`
	UpdatedAt              time.Time   `json:"updated_at"`
}

type BookingCollection struct {
	Items []BookingDTO `json:"items"`
	Total int          `json:"total"`
}

// MapBooking converts a booking; contractURL is resolved by the caller.
func MapBooking(b *domainbooking.Booking, contractURL string) BookingDTO {
	if b == nil {
		return BookingDTO{}
	}
	return BookingDTO{
		ID:          string(b.ID),
		ApartmentID: string(b.ApartmentID),
		Customer: CustomerDTO{
			Name:        b.Customer.Name,
			Email:       b.Customer.Email,
			Phone:       b.Customer.Phone,
			Address:     b.Customer.Address,
			DateOfBirth: b.Customer.DateOfBirth,
		},
		StartDate:              daterange.Format(b.Range.Start),
		EndDate:                daterange.Format(b.Range.End),
		Nights:                 b.Range.Nights(),
		Status:                 string(b.Status),
		HasParking:             b.HasParking,
		TotalPrice:             MapMoney(b.TotalPrice),
		AmountPaid:             MapMoney(b.AmountPaid),
		Paid:                   b.Paid(),
		ContractURL:            contractURL,
		CustomArrivalMessage:   b.CustomArrivalMessage,
		CustomDepartureMessage: b.CustomDepartureMessage,
		ArrivalMailDate:        formatOptionalDate(b.ArrivalMailDate),
		DepartureMailDate:      formatOptionalDate(b.DepartureMailDate),
		SentArrival:            b.SentArrival,
		SentDeparture:          b.SentDeparture,
		SentParking:            b.SentParking,
		CreatedAt:              b.CreatedAt,
		UpdatedAt:              b.UpdatedAt,
	}
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return daterange.Format(*t)
}
