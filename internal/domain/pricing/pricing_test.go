package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/apartment"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func stay(t *testing.T, start, end time.Time) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(start, end)
	require.NoError(t, err)
	return dr
}

func TestComputeSeasonalWeekOverridesDefault(t *testing.T) {
	out, err := Compute(QuoteInput{
		DefaultRate: money.Cents(100000),
		SeasonalRates: []apartment.SeasonalRate{
			{ApartmentID: "apt", WeekStart: daterange.Day(2026, 12, 19), Price: money.Cents(150000)},
		},
		Range: stay(t, daterange.Day(2026, 12, 19), daterange.Day(2027, 1, 2)),
	})
	require.NoError(t, err)
	assert.Equal(t, money.Cents(250000), out.Total)
	require.Len(t, out.Weeks, 2)
	assert.True(t, out.Weeks[0].Seasonal)
	assert.False(t, out.Weeks[1].Seasonal)
	assert.Equal(t, daterange.Day(2026, 12, 26), out.Weeks[1].WeekStart)
	assert.Equal(t, 14, out.Nights)
	assert.True(t, out.Parking.IsZero())
}

func TestComputeParkingIsIndependentOfSeasonalWeeks(t *testing.T) {
	dr := stay(t, daterange.Day(2026, 7, 4), daterange.Day(2026, 7, 25))
	base := QuoteInput{
		DefaultRate:   money.Cents(100000),
		Range:         dr,
		HasParking:    true,
		ParkingWeekly: money.Cents(8000),
	}
	plain, err := Compute(base)
	require.NoError(t, err)
	assert.Equal(t, 3, plain.ParkingWeeks)
	assert.Equal(t, money.Cents(24000), plain.Parking)
	assert.Equal(t, money.Cents(324000), plain.Total)

	base.SeasonalRates = []apartment.SeasonalRate{{WeekStart: daterange.Day(2026, 7, 11), Price: money.Cents(180000)}}
	seasonal, err := Compute(base)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(24000), seasonal.Parking)
	assert.Equal(t, money.Cents(404000), seasonal.Total)
}

func TestComputeChargesEveryStartedWeekOfParking(t *testing.T) {
	out, err := Compute(QuoteInput{
		DefaultRate:   money.Cents(70000),
		Range:         stay(t, daterange.Day(2026, 7, 4), daterange.Day(2026, 7, 13)),
		HasParking:    true,
		ParkingWeekly: money.Cents(8000),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.ParkingWeeks)
	assert.Equal(t, money.Cents(16000), out.Parking)
	assert.Len(t, out.Weeks, 2)
}

func TestComputeIsDeterministic(t *testing.T) {
	in := QuoteInput{
		DefaultRate:   money.Cents(95000),
		SeasonalRates: []apartment.SeasonalRate{{WeekStart: daterange.Day(2026, 8, 8), Price: money.Cents(120000)}},
		Range:         stay(t, daterange.Day(2026, 8, 1), daterange.Day(2026, 8, 22)),
		HasParking:    true,
		ParkingWeekly: money.Cents(8000),
	}
	first, err := Compute(in)
	require.NoError(t, err)
	second, err := Compute(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	_, err := Compute(QuoteInput{DefaultRate: money.Cents(1)})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = Compute(QuoteInput{Range: stay(t, daterange.Day(2026, 8, 1), daterange.Day(2026, 8, 8))})
	assert.ErrorIs(t, err, ErrCurrencyUnset)
}

func TestEngineUsesApartmentParkingRateWhenSet(t *testing.T) {
	engine := Engine{DefaultParkingWeekly: money.Cents(8000)}
	apt := &apartment.Apartment{ID: "apt", DefaultRate: money.Cents(100000), ChangeoverDay: time.Saturday}
	dr := stay(t, daterange.Day(2026, 8, 1), daterange.Day(2026, 8, 15))

	out, err := engine.Quote(apt, nil, dr, true)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(16000), out.Parking)

	custom := money.Cents(5000)
	apt.ParkingWeekly = &custom
	out, err = engine.Quote(apt, nil, dr, true)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(10000), out.Parking)
	assert.Equal(t, money.Cents(210000), out.Total)
}
