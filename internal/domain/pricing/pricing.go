package pricing

import (
	"errors"
	"time"

	"staybook/internal/domain/apartment"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var (
	ErrCurrencyUnset     = errors.New("pricing: currency must be defined")
	ErrNegativeComponent = errors.New("pricing: components cannot be negative")
)

// WeekLine is the price of the 7-night block starting on WeekStart.
type WeekLine struct {
	WeekStart time.Time
	Amount    money.Money
	Seasonal  bool
}

type PriceBreakdown struct {
	Nights       int
	Weeks        []WeekLine
	ParkingWeeks int
	ParkingRate  money.Money
	Parking      money.Money
	Total        money.Money
}

func (p *PriceBreakdown) RecalculateTotal() error {
	if len(p.Weeks) == 0 {
		return ErrCurrencyUnset
	}
	total := money.Money{Currency: p.Weeks[0].Amount.Currency}
	if total.Currency == "" {
		return ErrCurrencyUnset
	}
	for _, line := range p.Weeks {
		if line.Amount.Amount < 0 {
			return ErrNegativeComponent
		}
		sum, err := total.Add(line.Amount)
		if err != nil {
			return err
		}
		total = sum
	}
	if p.ParkingWeeks > 0 {
		if p.Parking.Amount < 0 {
			return ErrNegativeComponent
		}
		sum, err := total.Add(p.Parking)
		if err != nil {
			return err
		}
		total = sum
	}
	p.Total = total
	return nil
}

func (p PriceBreakdown) Copy() PriceBreakdown {
	clone := p
	clone.Weeks = append([]WeekLine(nil), p.Weeks...)
	return clone
}

type QuoteInput struct {
	DefaultRate   money.Money
	SeasonalRates []apartment.SeasonalRate
	Range         daterange.DateRange
	HasParking    bool
	ParkingWeekly money.Money
}

// Compute walks the stay week by week from its start. Each week costs the seasonal rate
// keyed by its exact start date, or the default rate. Parking is charged per started week.
func Compute(in QuoteInput) (PriceBreakdown, error) {
	if err := in.Range.Validate(); err != nil {
		return PriceBreakdown{}, err
	}
	if in.DefaultRate.Currency == "" {
		return PriceBreakdown{}, ErrCurrencyUnset
	}
	seasonal := make(map[string]money.Money, len(in.SeasonalRates))
	for _, r := range in.SeasonalRates {
		seasonal[daterange.Format(r.WeekStart)] = r.Price
	}
	out := PriceBreakdown{Nights: in.Range.Nights()}
	for cur := in.Range.Start; cur.Before(in.Range.End); cur = cur.AddDate(0, 0, 7) {
		line := WeekLine{WeekStart: cur, Amount: in.DefaultRate}
		if price, ok := seasonal[daterange.Format(cur)]; ok {
			line.Amount = price
			line.Seasonal = true
		}
		out.Weeks = append(out.Weeks, line)
	}
	if in.HasParking {
		if in.ParkingWeekly.Currency == "" {
			return PriceBreakdown{}, ErrCurrencyUnset
		}
		out.ParkingWeeks = in.Range.Weeks()
		out.ParkingRate = in.ParkingWeekly
		out.Parking = in.ParkingWeekly.Multiply(int64(out.ParkingWeeks))
	}
	if err := out.RecalculateTotal(); err != nil {
		return PriceBreakdown{}, err
	}
	return out, nil
}

// Engine prices stays for an apartment, falling back to a site-wide parking rate.
type Engine struct {
	DefaultParkingWeekly money.Money
}

func (e Engine) Quote(apt *apartment.Apartment, rates []apartment.SeasonalRate, dr daterange.DateRange, hasParking bool) (PriceBreakdown, error) {
	parking := e.DefaultParkingWeekly
	if apt.ParkingWeekly != nil {
		parking = *apt.ParkingWeekly
	}
	return Compute(QuoteInput{
		DefaultRate:   apt.DefaultRate,
		SeasonalRates: rates,
		Range:         dr,
		HasParking:    hasParking,
		ParkingWeekly: parking,
	})
}
