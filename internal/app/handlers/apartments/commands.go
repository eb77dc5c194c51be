package apartments

import (
	"context"
	"errors"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/uow"
	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/calendar"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

const (
	saveApartmentKey      = "apartments.save"
	setSeasonalRateKey    = "apartments.seasonal_rate.set"
	deleteSeasonalRateKey = "apartments.seasonal_rate.delete"
)

// SaveApartmentCommand creates the apartment or replaces its editable attributes.
type SaveApartmentCommand struct {
	ApartmentID          string `validate:"required"`
	Slug                 string `validate:"required"`
	Name                 string `validate:"required,max=200"`
	Description          string
	ChangeoverDay        string `validate:"required"`
	DefaultRateCents     int64  `validate:"gt=0"`
	ParkingWeeklyCents   *int64 `validate:"omitempty,gte=0"`
	ArrivalInstruction   string
	DepartureInstruction string
	ParkingInstruction   string
}

func (c SaveApartmentCommand) Key() string   { return saveApartmentKey }
func (c SaveApartmentCommand) OperatorOnly() {}

type SetSeasonalRateCommand struct {
	ApartmentID string `validate:"required"`
	WeekStart   string `validate:"required"`
	PriceCents  int64  `validate:"gt=0"`
}

func (c SetSeasonalRateCommand) Key() string   { return setSeasonalRateKey }
func (c SetSeasonalRateCommand) OperatorOnly() {}

type DeleteSeasonalRateCommand struct {
	ApartmentID string `validate:"required"`
	WeekStart   string `validate:"required"`
}

func (c DeleteSeasonalRateCommand) Key() string   { return deleteSeasonalRateKey }
func (c DeleteSeasonalRateCommand) OperatorOnly() {}

type ApartmentResult struct {
	Apartment dto.ApartmentDTO `json:"apartment"`
	Created   bool             `json:"created"`
}

type Handlers struct {
	Currency string
	Location *time.Location
	Clock    func() time.Time
}

func (h *Handlers) currency() string {
	if h.Currency != "" {
		return h.Currency
	}
	return money.DefaultCurrency
}

func (h *Handlers) Save(ctx context.Context, cmd SaveApartmentCommand) (*ApartmentResult, error) {
	unit, err := handlersupport.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	weekday, err := calendar.ParseWeekday(cmd.ChangeoverDay)
	if err != nil {
		return nil, err
	}
	params := domainapartment.Params{
		ID:                   domainapartment.ID(cmd.ApartmentID),
		Slug:                 cmd.Slug,
		Name:                 cmd.Name,
		Description:          cmd.Description,
		ChangeoverDay:        weekday,
		DefaultRate:          money.Money{Amount: cmd.DefaultRateCents, Currency: h.currency()},
		ArrivalInstruction:   cmd.ArrivalInstruction,
		DepartureInstruction: cmd.DepartureInstruction,
		ParkingInstruction:   cmd.ParkingInstruction,
	}
	if cmd.ParkingWeeklyCents != nil {
		params.ParkingWeekly = &money.Money{Amount: *cmd.ParkingWeeklyCents, Currency: h.currency()}
	}
	now := handlersupport.NowFunc(h.Clock)

	created := false
	apt, err := unit.Apartments().ByID(ctx, params.ID)
	switch {
	case errors.Is(err, domainapartment.ErrNotFound):
		apt, err = domainapartment.New(params, now)
		if err != nil {
			return nil, err
		}
		created = true
	case err != nil:
		return nil, err
	default:
		if apt.ChangeoverDay != weekday {
			if err := ensureChangeoverMovable(ctx, unit, apt.ID, now); err != nil {
				return nil, err
			}
		}
		if err := apt.Revise(params, now); err != nil {
			return nil, err
		}
	}
	if err := unit.Apartments().Save(ctx, apt); err != nil {
		return nil, err
	}
	rates, err := unit.Apartments().SeasonalRates(ctx, apt.ID)
	if err != nil {
		return nil, err
	}
	return &ApartmentResult{Apartment: dto.MapApartment(apt, rates), Created: created}, nil
}

// ensureChangeoverMovable refuses a new changeover day while stored rates or bookings that
// have not ended are aligned to the current one.
func ensureChangeoverMovable(ctx context.Context, unit uow.UnitOfWork, id domainapartment.ID, now time.Time) error {
	rates, err := unit.Apartments().SeasonalRates(ctx, id)
	if err != nil {
		return err
	}
	if len(rates) > 0 {
		return domainapartment.ErrChangeoverInUse
	}
	open, err := unit.Bookings().List(ctx, domainbooking.ListFilter{
		ApartmentID: id,
		Statuses:    []domainbooking.Status{domainbooking.StatusPending, domainbooking.StatusConfirmed},
	})
	if err != nil {
		return err
	}
	today := daterange.Normalize(now)
	for _, b := range open {
		if b.Range.End.After(today) {
			return domainapartment.ErrChangeoverInUse
		}
	}
	return nil
}

func (h *Handlers) SetSeasonalRate(ctx context.Context, cmd SetSeasonalRateCommand) (*dto.SeasonalRateDTO, error) {
	unit, err := handlersupport.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	apt, err := unit.Apartments().ByID(ctx, domainapartment.ID(cmd.ApartmentID))
	if err != nil {
		return nil, err
	}
	weekStart, err := daterange.Parse(cmd.WeekStart, h.Location)
	if err != nil {
		return nil, err
	}
	rate, err := apt.NewSeasonalRate(weekStart, money.Money{Amount: cmd.PriceCents, Currency: apt.DefaultRate.Currency})
	if err != nil {
		return nil, err
	}
	if err := unit.Apartments().SaveSeasonalRate(ctx, rate); err != nil {
		return nil, err
	}
	return &dto.SeasonalRateDTO{WeekStart: daterange.Format(rate.WeekStart), Price: dto.MapMoney(rate.Price)}, nil
}

func (h *Handlers) DeleteSeasonalRate(ctx context.Context, cmd DeleteSeasonalRateCommand) (*struct{}, error) {
	unit, err := handlersupport.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	apt, err := unit.Apartments().ByID(ctx, domainapartment.ID(cmd.ApartmentID))
	if err != nil {
		return nil, err
	}
	weekStart, err := daterange.Parse(cmd.WeekStart, h.Location)
	if err != nil {
		return nil, err
	}
	if err := unit.Apartments().DeleteSeasonalRate(ctx, apt.ID, weekStart); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

var (
	_ commands.HandlerFunc[SaveApartmentCommand, *ApartmentResult]       = (*Handlers)(nil).Save
	_ commands.HandlerFunc[SetSeasonalRateCommand, *dto.SeasonalRateDTO] = (*Handlers)(nil).SetSeasonalRate
	_ commands.HandlerFunc[DeleteSeasonalRateCommand, *struct{}]         = (*Handlers)(nil).DeleteSeasonalRate
)
