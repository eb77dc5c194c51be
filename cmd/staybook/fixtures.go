package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	apartmentsapp "staybook/internal/app/handlers/apartments"
)

type apartmentFixture struct {
	ID                   string                `json:"id"`
	Slug                 string                `json:"slug"`
	Name                 string                `json:"name"`
	Description          string                `json:"description"`
	ChangeoverDay        string                `json:"changeover_day"`
	DefaultWeeklyCents   int64                 `json:"default_weekly_cents"`
	ParkingWeeklyCents   *int64                `json:"parking_weekly_cents"`
	ArrivalInstruction   string                `json:"arrival_instruction"`
	DepartureInstruction string                `json:"departure_instruction"`
	ParkingInstruction   string                `json:"parking_instruction"`
	SeasonalRates        []seasonalRateFixture `json:"seasonal_rates"`
}

type seasonalRateFixture struct {
	WeekStart  string `json:"week_start"`
	PriceCents int64  `json:"price_cents"`
}

// loadApartmentFixtures upserts the apartments listed in a JSON file. ctx must carry an
// operator. Invalid entries are logged and skipped.
func loadApartmentFixtures(ctx context.Context, bus commands.Bus, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("apartment fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("apartment fixtures file empty", "path", path)
		return nil
	}
	var fixtures []apartmentFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	for _, fx := range fixtures {
		_, err := commands.Dispatch[apartmentsapp.SaveApartmentCommand, *apartmentsapp.ApartmentResult](ctx, bus, apartmentsapp.SaveApartmentCommand{
			ApartmentID:          fx.ID,
			Slug:                 fx.Slug,
			Name:                 fx.Name,
			Description:          fx.Description,
			ChangeoverDay:        fx.ChangeoverDay,
			DefaultRateCents:     fx.DefaultWeeklyCents,
			ParkingWeeklyCents:   fx.ParkingWeeklyCents,
			ArrivalInstruction:   fx.ArrivalInstruction,
			DepartureInstruction: fx.DepartureInstruction,
			ParkingInstruction:   fx.ParkingInstruction,
		})
		if err != nil {
			logger.Error("fixture invalid", "apartment_id", fx.ID, "error", err)
			continue
		}
		for _, rate := range fx.SeasonalRates {
			_, err := commands.Dispatch[apartmentsapp.SetSeasonalRateCommand, *dto.SeasonalRateDTO](ctx, bus, apartmentsapp.SetSeasonalRateCommand{
				ApartmentID: fx.ID,
				WeekStart:   rate.WeekStart,
				PriceCents:  rate.PriceCents,
			})
			if err != nil {
				logger.Error("fixture seasonal rate invalid", "apartment_id", fx.ID, "week_start", rate.WeekStart, "error", err)
			}
		}
		logger.Info("apartment fixture imported", "apartment_id", fx.ID)
	}
	return nil
}
