package apartments

import (
	"context"
	"sort"
	"strings"

	"staybook/internal/app/dto"
	availabilityhandlers "staybook/internal/app/handlers/availability"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
)

const (
	listApartmentsKey     = "apartments.list"
	getApartmentBySlugKey = "apartments.get_by_slug"
)

type ListApartmentsQuery struct{}

func (q ListApartmentsQuery) Key() string { return listApartmentsKey }

type GetApartmentBySlugQuery struct {
	Slug string `validate:"required"`
}

func (q GetApartmentBySlugQuery) Key() string { return getApartmentBySlugKey }

type ListApartmentsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListApartmentsHandler) Handle(ctx context.Context, _ ListApartmentsQuery) (dto.ApartmentCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ApartmentCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	apts, err := unit.Apartments().List(execCtx)
	if err != nil {
		return dto.ApartmentCollection{}, err
	}
	sort.Slice(apts, func(i, j int) bool { return apts[i].Name < apts[j].Name })
	items := make([]dto.ApartmentDTO, 0, len(apts))
	for _, apt := range apts {
		rates, err := unit.Apartments().SeasonalRates(execCtx, apt.ID)
		if err != nil {
			return dto.ApartmentCollection{}, err
		}
		items = append(items, dto.MapApartment(apt, rates))
	}
	return dto.ApartmentCollection{Items: items}, nil
}

type GetApartmentBySlugHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetApartmentBySlugHandler) Handle(ctx context.Context, q GetApartmentBySlugQuery) (dto.ApartmentDTO, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ApartmentDTO{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	apt, err := unit.Apartments().BySlug(execCtx, strings.ToLower(strings.TrimSpace(q.Slug)))
	if err != nil {
		return dto.ApartmentDTO{}, err
	}
	rates, err := unit.Apartments().SeasonalRates(execCtx, apt.ID)
	if err != nil {
		return dto.ApartmentDTO{}, err
	}
	ranges, err := availabilityhandlers.ConfirmedRanges(execCtx, unit, apt.ID)
	if err != nil {
		return dto.ApartmentDTO{}, err
	}
	out := dto.MapApartment(apt, rates)
	out.BookedRanges = dto.MapBookedRanges(ranges)
	return out, nil
}

var (
	_ queries.Handler[ListApartmentsQuery, dto.ApartmentCollection] = (*ListApartmentsHandler)(nil)
	_ queries.Handler[GetApartmentBySlugQuery, dto.ApartmentDTO]    = (*GetApartmentBySlugHandler)(nil)
)
