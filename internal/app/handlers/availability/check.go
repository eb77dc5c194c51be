package availability

import (
	"context"
	"sort"
	"time"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainapartment "staybook/internal/domain/apartment"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
)

const (
	checkAvailabilityKey = "availability.check"
	bookedDatesKey       = "availability.booked_dates"
)

type CheckAvailabilityQuery struct {
	ApartmentID string `validate:"required"`
	StartDate   string `validate:"required"`
	EndDate     string `validate:"required"`
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

type BookedDatesQuery struct {
	ApartmentID string `validate:"required"`
}

func (q BookedDatesQuery) Key() string { return bookedDatesKey }

type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	Location   *time.Location
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.AvailabilityDTO, error) {
	dr, err := handlersupport.ParseRange(q.StartDate, q.EndDate, h.Location)
	if err != nil {
		return dto.AvailabilityDTO{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.AvailabilityDTO{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	apt, err := unit.Apartments().ByID(execCtx, domainapartment.ID(q.ApartmentID))
	if err != nil {
		return dto.AvailabilityDTO{}, err
	}
	confirmed, err := unit.Bookings().Overlapping(execCtx, apt.ID, dr, domainbooking.StatusConfirmed)
	if err != nil {
		return dto.AvailabilityDTO{}, err
	}
	res := domainavailability.Check(dr, domainbooking.Occupancies(confirmed))
	conflicts := res.Conflicts
	if conflicts == nil {
		conflicts = []string{}
	}
	return dto.AvailabilityDTO{
		ApartmentID: string(apt.ID),
		StartDate:   daterange.Format(dr.Start),
		EndDate:     daterange.Format(dr.End),
		Available:   res.Available,
		Conflicts:   conflicts,
	}, nil
}

type BookedDatesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *BookedDatesHandler) Handle(ctx context.Context, q BookedDatesQuery) (dto.BookedDatesDTO, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookedDatesDTO{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	ranges, err := ConfirmedRanges(execCtx, unit, domainapartment.ID(q.ApartmentID))
	if err != nil {
		return dto.BookedDatesDTO{}, err
	}
	return dto.BookedDatesDTO{ApartmentID: q.ApartmentID, Ranges: dto.MapBookedRanges(ranges)}, nil
}

// ConfirmedRanges lists the ranges held by confirmed bookings of an apartment, earliest first.
func ConfirmedRanges(ctx context.Context, unit uow.UnitOfWork, id domainapartment.ID) ([]daterange.DateRange, error) {
	if _, err := unit.Apartments().ByID(ctx, id); err != nil {
		return nil, err
	}
	bookings, err := unit.Bookings().List(ctx, domainbooking.ListFilter{
		ApartmentID: id,
		Statuses:    []domainbooking.Status{domainbooking.StatusConfirmed},
	})
	if err != nil {
		return nil, err
	}
	out := make([]daterange.DateRange, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.Range)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

var (
	_ queries.Handler[CheckAvailabilityQuery, dto.AvailabilityDTO] = (*CheckAvailabilityHandler)(nil)
	_ queries.Handler[BookedDatesQuery, dto.BookedDatesDTO]        = (*BookedDatesHandler)(nil)
)
