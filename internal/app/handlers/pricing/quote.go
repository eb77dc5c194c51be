package pricing

import (
	"context"
	"time"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainapartment "staybook/internal/domain/apartment"
	"staybook/internal/domain/calendar"
	domainpricing "staybook/internal/domain/pricing"
)

const quotePriceKey = "pricing.quote"

type QuotePriceQuery struct {
	ApartmentID string `validate:"required"`
	StartDate   string `validate:"required"`
	EndDate     string `validate:"required"`
	HasParking  bool
}

func (q QuotePriceQuery) Key() string { return quotePriceKey }

type QuotePriceHandler struct {
	UoWFactory uow.UoWFactory
	Pricing    domainpricing.Engine
	Location   *time.Location
}

func (h *QuotePriceHandler) Handle(ctx context.Context, q QuotePriceQuery) (dto.QuoteDTO, error) {
	dr, err := handlersupport.ParseRange(q.StartDate, q.EndDate, h.Location)
	if err != nil {
		return dto.QuoteDTO{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.QuoteDTO{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	apt, err := unit.Apartments().ByID(execCtx, domainapartment.ID(q.ApartmentID))
	if err != nil {
		return dto.QuoteDTO{}, err
	}
	if err := calendar.ValidateRange(dr, apt.ChangeoverDay); err != nil {
		return dto.QuoteDTO{}, err
	}
	rates, err := unit.Apartments().SeasonalRates(execCtx, apt.ID)
	if err != nil {
		return dto.QuoteDTO{}, err
	}
	quote, err := h.Pricing.Quote(apt, rates, dr, q.HasParking)
	if err != nil {
		return dto.QuoteDTO{}, err
	}
	return dto.MapQuote(string(apt.ID), dr, quote), nil
}

var _ queries.Handler[QuotePriceQuery, dto.QuoteDTO] = (*QuotePriceHandler)(nil)
