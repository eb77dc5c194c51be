package booking

import (
	"context"
	"encoding/json"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	domainbooking "staybook/internal/domain/booking"
)

const updateBookingKey = "booking.update"

type UpdateBookingCommand struct {
	BookingID string `validate:"required"`
	Fields    map[string]json.RawMessage
}

func (c UpdateBookingCommand) Key() string   { return updateBookingKey }
func (c UpdateBookingCommand) OperatorOnly() {}

type UpdateBookingResult struct {
	Booking dto.BookingDTO `json:"booking"`
	Changed []string       `json:"changed"`
	Ignored []string       `json:"ignored,omitempty"`
}

type UpdateBookingHandler struct {
	Deps
	Location *time.Location
	Clock    func() time.Time
}

func (h *UpdateBookingHandler) Handle(ctx context.Context, cmd UpdateBookingCommand) (*UpdateBookingResult, error) {
	unit, err := handlersupport.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	b, err := unit.Bookings().ByID(ctx, domainbooking.ID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	patch, err := domainbooking.DecodePatch(cmd.Fields, b.TotalPrice.Currency, h.Location)
	if err != nil {
		return nil, err
	}
	changed, err := b.ApplyPatch(patch, handlersupport.NowFunc(h.Clock))
	if err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		if err := unit.Bookings().Save(ctx, b); err != nil {
			return nil, err
		}
		if err := h.record(ctx, b); err != nil {
			return nil, err
		}
	}
	return &UpdateBookingResult{
		Booking: dto.MapBooking(b, handlersupport.ContractURL(ctx, h.Linker, b.ContractRef, h.Logger)),
		Changed: changed,
		Ignored: patch.Ignored,
	}, nil
}

var _ commands.Handler[UpdateBookingCommand, *UpdateBookingResult] = (*UpdateBookingHandler)(nil)
