package booking

import (
	"context"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	"staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/calendar"
	domainpricing "staybook/internal/domain/pricing"
)

const (
	confirmBookingKey = "booking.confirm"
	rejectBookingKey  = "booking.reject"
	cancelBookingKey  = "booking.cancel"
)

type ConfirmBookingCommand struct {
	BookingID string `validate:"required"`
}

func (c ConfirmBookingCommand) Key() string   { return confirmBookingKey }
func (c ConfirmBookingCommand) OperatorOnly() {}

type ConfirmBookingResult struct {
	Booking      dto.BookingDTO `json:"booking"`
	AutoRejected []string       `json:"auto_rejected"`
}

type RejectBookingCommand struct {
	BookingID string `validate:"required"`
}

func (c RejectBookingCommand) Key() string   { return rejectBookingKey }
func (c RejectBookingCommand) OperatorOnly() {}

type CancelBookingCommand struct {
	BookingID string `validate:"required"`
}

func (c CancelBookingCommand) Key() string   { return cancelBookingKey }
func (c CancelBookingCommand) OperatorOnly() {}

type BookingResult struct {
	Booking dto.BookingDTO `json:"booking"`
}

// lockBooking loads a booking, takes the per-apartment booking lock and reloads it so
// the caller sees the state left by whoever held the lock before.
func lockBooking(ctx context.Context, unit uow.UnitOfWork, id string) (*domainbooking.Booking, error) {
	b, err := unit.Bookings().ByID(ctx, domainbooking.ID(id))
	if err != nil {
		return nil, err
	}
	if err := unit.Apartments().LockForBooking(ctx, b.ApartmentID); err != nil {
		return nil, err
	}
	return unit.Bookings().ByID(ctx, b.ID)
}

type ConfirmBookingHandler struct {
	Deps
	Pricing   domainpricing.Engine
	Contracts policies.ContractGenerator
	Clock     func() time.Time
}

func (h *ConfirmBookingHandler) Handle(ctx context.Context, cmd ConfirmBookingCommand) (*ConfirmBookingResult, error) {
	unit, err := handlersupport.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	b, err := lockBooking(ctx, unit, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != domainbooking.StatusPending {
		return nil, domainbooking.ErrAlreadyResolved
	}
	apt, err := unit.Apartments().ByID(ctx, b.ApartmentID)
	if err != nil {
		return nil, err
	}
	if err := calendar.ValidateRange(b.Range, apt.ChangeoverDay); err != nil {
		return nil, err
	}

	confirmed, err := unit.Bookings().Overlapping(ctx, apt.ID, b.Range, domainbooking.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	if err := availability.Check(b.Range, domainbooking.Occupancies(confirmed)).Err(); err != nil {
		return nil, err
	}

	rates, err := unit.Apartments().SeasonalRates(ctx, apt.ID)
	if err != nil {
		return nil, err
	}
	quote, err := h.Pricing.Quote(apt, rates, b.Range, b.HasParking)
	if err != nil {
		return nil, err
	}
	ref := ""
	if h.Contracts != nil {
		ref, err = h.Contracts.Generate(ctx, policies.ContractInput{Booking: b, Apartment: apt, Price: quote, Revision: "confirmed"})
		if err != nil {
			return nil, err
		}
		handlersupport.DiscardContractOnRollback(ctx, h.Contracts, ref, h.logger())
	}

	now := handlersupport.NowFunc(h.Clock)
	if err := b.Confirm(quote.Total, ref, now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}

	pending, err := unit.Bookings().Overlapping(ctx, apt.ID, b.Range, domainbooking.StatusPending)
	if err != nil {
		return nil, err
	}
	touched := []*domainbooking.Booking{b}
	rejectedIDs := make([]string, 0, len(pending))
	for _, other := range pending {
		if other.ID == b.ID {
			continue
		}
		if err := other.Reject(b.ID, now); err != nil {
			return nil, err
		}
		if err := unit.Bookings().Save(ctx, other); err != nil {
			return nil, err
		}
		touched = append(touched, other)
		rejectedIDs = append(rejectedIDs, string(other.ID))
	}
	if err := h.record(ctx, touched...); err != nil {
		return nil, err
	}

	contractURL := handlersupport.ContractURL(ctx, h.Linker, b.ContractRef, h.Logger)
	notices := []policies.Notification{customerNotice(policies.TemplateConfirmed, b, apt, contractURL)}
	for _, other := range touched[1:] {
		notices = append(notices, customerNotice(policies.TemplateRejected, other, apt, ""))
	}
	h.enqueue(ctx, notices...)

	h.logger().Info("booking confirmed", "booking_id", b.ID, "apartment_id", apt.ID, "auto_rejected", len(rejectedIDs))
	return &ConfirmBookingResult{Booking: dto.MapBooking(b, contractURL), AutoRejected: rejectedIDs}, nil
}

type RejectBookingHandler struct {
	Deps
	Clock func() time.Time
}

func (h *RejectBookingHandler) Handle(ctx context.Context, cmd RejectBookingCommand) (*BookingResult, error) {
	unit, err := handlersupport.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	b, err := lockBooking(ctx, unit, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if err := b.Reject("", handlersupport.NowFunc(h.Clock)); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := h.record(ctx, b); err != nil {
		return nil, err
	}
	apt, err := unit.Apartments().ByID(ctx, b.ApartmentID)
	if err != nil {
		return nil, err
	}
	h.enqueue(ctx, customerNotice(policies.TemplateRejected, b, apt, ""))
	return &BookingResult{Booking: dto.MapBooking(b, "")}, nil
}

type CancelBookingHandler struct {
	Deps
	Clock func() time.Time
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*BookingResult, error) {
	unit, err := handlersupport.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	b, err := lockBooking(ctx, unit, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if err := b.Cancel(handlersupport.NowFunc(h.Clock)); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := h.record(ctx, b); err != nil {
		return nil, err
	}
	apt, err := unit.Apartments().ByID(ctx, b.ApartmentID)
	if err != nil {
		return nil, err
	}
	h.enqueue(ctx, customerNotice(policies.TemplateCancelled, b, apt, ""))
	return &BookingResult{Booking: dto.MapBooking(b, handlersupport.ContractURL(ctx, h.Linker, b.ContractRef, h.Logger))}, nil
}

// StatusCommand maps a requested target status onto the matching lifecycle command.
func StatusCommand(bookingID, status string) (commands.Command, error) {
	target, err := domainbooking.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	switch target {
	case domainbooking.StatusConfirmed:
		return ConfirmBookingCommand{BookingID: bookingID}, nil
	case domainbooking.StatusRejected:
		return RejectBookingCommand{BookingID: bookingID}, nil
	case domainbooking.StatusCancelled:
		return CancelBookingCommand{BookingID: bookingID}, nil
	default:
		return nil, domainbooking.ErrInvalidTransition
	}
}

var (
	_ commands.Handler[ConfirmBookingCommand, *ConfirmBookingResult] = (*ConfirmBookingHandler)(nil)
	_ commands.Handler[RejectBookingCommand, *BookingResult]         = (*RejectBookingHandler)(nil)
	_ commands.Handler[CancelBookingCommand, *BookingResult]         = (*CancelBookingHandler)(nil)
	_ policies.OperatorOnly                                          = ConfirmBookingCommand{}
)
