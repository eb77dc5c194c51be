package dto

import (
	domainpricing "staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
)

type WeekLineDTO struct {
	WeekStart string   `json:"week_start"`
	Amount    MoneyDTO `json:"amount"`
	Seasonal  bool     `json:"seasonal"`
}

type QuoteDTO struct {
	ApartmentID  string        `json:"apartment_id"`
	StartDate    string        `json:"start_date"`
	EndDate      string        `json:"end_date"`
	Nights       int           `json:"nights"`
	Weeks        []WeekLineDTO `json:"weeks"`
	ParkingWeeks int           `json:"parking_weeks,omitempty"`
	Parking      *MoneyDTO     `json:"parking,omitempty"`
	Total        MoneyDTO      `json:"total"`
}

func MapQuote(apartmentID string, dr daterange.DateRange, p domainpricing.PriceBreakdown) QuoteDTO {
	out := QuoteDTO{
		ApartmentID:  apartmentID,
		StartDate:    daterange.Format(dr.Start),
		EndDate:      daterange.Format(dr.End),
		Nights:       p.Nights,
		ParkingWeeks: p.ParkingWeeks,
		Total:        MapMoney(p.Total),
	}
	for _, w := range p.Weeks {
		out.Weeks = append(out.Weeks, WeekLineDTO{WeekStart: daterange.Format(w.WeekStart), Amount: MapMoney(w.Amount), Seasonal: w.Seasonal})
	}
	if p.ParkingWeeks > 0 {
		parking := MapMoney(p.Parking)
		out.Parking = &parking
	}
	return out
}
