package apartment

import (
	"context"
	"regexp"
	"strings"
	"time"

	"staybook/internal/domain/calendar"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/faults"
	"staybook/internal/domain/shared/money"
)

var (
	ErrNotFound             = faults.NotFound("apartment: not found")
	ErrSeasonalRateNotFound = faults.NotFound("apartment: seasonal rate not found")
	ErrIDRequired           = faults.Validation("apartment: id is required")
	ErrInvalidSlug          = faults.Validation("apartment: slug must be lowercase letters, digits and dashes")
	ErrNameRequired         = faults.Validation("apartment: name is required")
	ErrInvalidRate          = faults.Validation("apartment: rates must be positive amounts")
	ErrSeasonalWeekStart    = faults.Validation("apartment: seasonal week must start on the changeover day")
	ErrSlugTaken            = faults.Conflict("apartment: slug already in use")
	ErrChangeoverInUse      = faults.State("apartment: changeover day is fixed while seasonal rates or open bookings exist")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type ID string

type Apartment struct {
	ID                   ID
	Slug                 string
	Name                 string
	Description          string
	ChangeoverDay        time.Weekday
	DefaultRate          money.Money
	ParkingWeekly        *money.Money
	ArrivalInstruction   string
	DepartureInstruction string
	ParkingInstruction   string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Version              int64
}

// SeasonalRate overrides the default rate for the week starting on WeekStart.
type SeasonalRate struct {
	ApartmentID ID
	WeekStart   time.Time
	Price       money.Money
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Apartment, error)
	BySlug(ctx context.Context, slug string) (*Apartment, error)
	List(ctx context.Context) ([]*Apartment, error)
	Save(ctx context.Context, apt *Apartment) error
	SeasonalRates(ctx context.Context, id ID) ([]SeasonalRate, error)
	SaveSeasonalRate(ctx context.Context, rate SeasonalRate) error
	DeleteSeasonalRate(ctx context.Context, id ID, weekStart time.Time) error
	// LockForBooking serializes booking status changes for one apartment until the
	// surrounding unit of work ends.
	LockForBooking(ctx context.Context, id ID) error
}

type Params struct {
	ID                   ID
	Slug                 string
	Name                 string
	Description          string
	ChangeoverDay        time.Weekday
	DefaultRate          money.Money
	ParkingWeekly        *money.Money
	ArrivalInstruction   string
	DepartureInstruction string
	ParkingInstruction   string
}

func New(params Params, now time.Time) (*Apartment, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	apt := &Apartment{ID: ID(strings.TrimSpace(string(params.ID))), CreatedAt: now.UTC()}
	if err := apt.Revise(params, now); err != nil {
		return nil, err
	}
	return apt, nil
}

// Revise replaces the editable attributes. The id never changes.
func (a *Apartment) Revise(params Params, now time.Time) error {
	slug := strings.ToLower(strings.TrimSpace(params.Slug))
	if !slugPattern.MatchString(slug) {
		return ErrInvalidSlug
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return ErrNameRequired
	}
	if params.ChangeoverDay < time.Sunday || params.ChangeoverDay > time.Saturday {
		return calendar.ErrInvalidWeekday
	}
	if params.DefaultRate.Amount <= 0 || params.DefaultRate.Currency == "" {
		return ErrInvalidRate
	}
	var parking *money.Money
	if params.ParkingWeekly != nil {
		if params.ParkingWeekly.Amount < 0 || params.ParkingWeekly.Currency != params.DefaultRate.Currency {
			return ErrInvalidRate
		}
		p := *params.ParkingWeekly
		parking = &p
	}
	a.Slug = slug
	a.Name = name
	a.Description = strings.TrimSpace(params.Description)
	a.ChangeoverDay = params.ChangeoverDay
	a.DefaultRate = params.DefaultRate
	a.ParkingWeekly = parking
	a.ArrivalInstruction = params.ArrivalInstruction
	a.DepartureInstruction = params.DepartureInstruction
	a.ParkingInstruction = params.ParkingInstruction
	a.UpdatedAt = now.UTC()
	return nil
}

// NewSeasonalRate validates an override against the apartment's changeover day.
func (a *Apartment) NewSeasonalRate(weekStart time.Time, price money.Money) (SeasonalRate, error) {
	if price.Amount <= 0 || price.Currency != a.DefaultRate.Currency {
		return SeasonalRate{}, ErrInvalidRate
	}
	if !calendar.IsValidBoundary(weekStart, a.ChangeoverDay) {
		return SeasonalRate{}, ErrSeasonalWeekStart
	}
	return SeasonalRate{ApartmentID: a.ID, WeekStart: daterange.Normalize(weekStart), Price: price}, nil
}
