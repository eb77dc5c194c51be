package booking

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
)

const (
	listBookingsKey        = "booking.list"
	getBookingKey          = "booking.get"
	allStatusesFilterValue = "all"
)

type ListBookingsQuery struct {
	ApartmentID string
	// Status is a comma separated list; empty or "all" means every status.
	Status string
}

func (q ListBookingsQuery) Key() string   { return listBookingsKey }
func (q ListBookingsQuery) OperatorOnly() {}

type GetBookingQuery struct {
	BookingID string `validate:"required"`
}

func (q GetBookingQuery) Key() string   { return getBookingKey }
func (q GetBookingQuery) OperatorOnly() {}

type ListBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Linker     policies.ContractLinker
	Logger     *slog.Logger
}

func (h *ListBookingsHandler) Handle(ctx context.Context, q ListBookingsQuery) (dto.BookingCollection, error) {
	filter := domainbooking.ListFilter{ApartmentID: domainapartment.ID(strings.TrimSpace(q.ApartmentID))}
	raw := strings.TrimSpace(q.Status)
	if raw != "" && !strings.EqualFold(raw, allStatusesFilterValue) {
		for _, part := range strings.Split(raw, ",") {
			status, err := domainbooking.ParseStatus(part)
			if err != nil {
				return dto.BookingCollection{}, err
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	bookings, err := unit.Bookings().List(execCtx, filter)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	sort.SliceStable(bookings, func(i, j int) bool {
		if !bookings[i].Range.Start.Equal(bookings[j].Range.Start) {
			return bookings[i].Range.Start.Before(bookings[j].Range.Start)
		}
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})
	items := make([]dto.BookingDTO, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, dto.MapBooking(b, handlersupport.ContractURL(execCtx, h.Linker, b.ContractRef, h.Logger)))
	}
	return dto.BookingCollection{Items: items, Total: len(items)}, nil
}

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
	Linker     policies.ContractLinker
	Logger     *slog.Logger
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.BookingDTO, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingDTO{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Bookings().ByID(execCtx, domainbooking.ID(q.BookingID))
	if err != nil {
		return dto.BookingDTO{}, err
	}
	return dto.MapBooking(b, handlersupport.ContractURL(execCtx, h.Linker, b.ContractRef, h.Logger)), nil
}

var (
	_ queries.Handler[ListBookingsQuery, dto.BookingCollection] = (*ListBookingsHandler)(nil)
	_ queries.Handler[GetBookingQuery, dto.BookingDTO]          = (*GetBookingHandler)(nil)
)
