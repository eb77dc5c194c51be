package dto

import (
	domainapartment "staybook/internal/domain/apartment"
	"staybook/internal/domain/shared/daterange"
)

type SeasonalRateDTO struct {
	WeekStart string   `json:"week_start"`
	Price     MoneyDTO `json:"price"`
}

type BookedRangeDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type ApartmentDTO struct {
	ID                   string            `json:"id"`
	Slug                 string            `json:"slug"`
	Name                 string            `json:"name"`
	Description          string            `json:"description,omitempty"`
	ChangeoverDay        string            `json:"changeover_day"`
	DefaultRate          MoneyDTO          `json:"default_rate"`
	ParkingWeeklyRate    *MoneyDTO         `json:"parking_weekly_rate,omitempty"`
	ArrivalInstruction   string            `json:"arrival_instruction,omitempty"`
	DepartureInstruction string            `json:"departure_instruction,omitempty"`
	ParkingInstruction   string            `json:"parking_instruction,omitempty"`
	SeasonalRates        []SeasonalRateDTO `json:"seasonal_rates,omitempty"`
	BookedRanges         []BookedRangeDTO  `json:"booked_ranges,omitempty"`
}

type ApartmentCollection struct {
	Items []ApartmentDTO `json:"items"`
}

func MapApartment(a *domainapartment.Apartment, rates []domainapartment.SeasonalRate) ApartmentDTO {
	if a == nil {
		return ApartmentDTO{}
	}
	out := ApartmentDTO{
		ID:                   string(a.ID),
		Slug:                 a.Slug,
		Name:                 a.Name,
		Description:          a.Description,
		ChangeoverDay:        a.ChangeoverDay.String(),
		DefaultRate:          MapMoney(a.DefaultRate),
		ArrivalInstruction:   a.ArrivalInstruction,
		DepartureInstruction: a.DepartureInstruction,
		ParkingInstruction:   a.ParkingInstruction,
	}
	if a.ParkingWeekly != nil {
		p := MapMoney(*a.ParkingWeekly)
		out.ParkingWeeklyRate = &p
	}
	for _, r := range rates {
		out.SeasonalRates = append(out.SeasonalRates, SeasonalRateDTO{WeekStart: daterange.Format(r.WeekStart), Price: MapMoney(r.Price)})
	}
	return out
}

func MapBookedRanges(ranges []daterange.DateRange) []BookedRangeDTO {
	out := make([]BookedRangeDTO, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, BookedRangeDTO{Start: daterange.Format(r.Start), End: daterange.Format(r.End)})
	}
	return out
}
