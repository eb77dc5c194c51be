package booking

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/middleware"
	"staybook/internal/app/policies"
	domainapartment "staybook/internal/domain/apartment"
	"staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/calendar"
	domainpricing "staybook/internal/domain/pricing"
)

const createBookingKey = "booking.create"

type CreateBookingCommand struct {
	ApartmentID     string `validate:"required"`
	Name            string `validate:"required,max=200"`
	Email           string `validate:"required,email"`
	Phone           string `validate:"omitempty,max=40"`
	Address         string `validate:"omitempty,max=400"`
	DateOfBirth     string `validate:"omitempty,max=20"`
	StartDate       string `validate:"required"`
	EndDate         string `validate:"required"`
	HasParking      bool
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBookingCommand) ResultPrototype() any { return &CreateBookingResult{} }

type CreateBookingResult struct {
	Booking dto.BookingDTO `json:"booking"`
	Quote   dto.QuoteDTO   `json:"quote"`
}

type CreateBookingHandler struct {
	Deps
	Pricing    domainpricing.Engine
	Contracts  policies.ContractGenerator
	Location   *time.Location
	OwnerEmail string
	NewID      func() string
	Clock      func() time.Time
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
	unit, err := handlersupport.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	apt, err := unit.Apartments().ByID(ctx, domainapartment.ID(strings.TrimSpace(cmd.ApartmentID)))
	if err != nil {
		return nil, err
	}
	dr, err := handlersupport.ParseRange(cmd.StartDate, cmd.EndDate, h.Location)
	if err != nil {
		return nil, err
	}
	if err := calendar.ValidateRange(dr, apt.ChangeoverDay); err != nil {
		return nil, err
	}

	confirmed, err := unit.Bookings().Overlapping(ctx, apt.ID, dr, domainbooking.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	if err := availability.Check(dr, domainbooking.Occupancies(confirmed)).Err(); err != nil {
		return nil, err
	}

	rates, err := unit.Apartments().SeasonalRates(ctx, apt.ID)
	if err != nil {
		return nil, err
	}
	quote, err := h.Pricing.Quote(apt, rates, dr, cmd.HasParking)
	if err != nil {
		return nil, err
	}

	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:          domainbooking.ID(h.newID()),
		ApartmentID: apt.ID,
		Customer: domainbooking.Customer{
			Name:        cmd.Name,
			Email:       cmd.Email,
			Phone:       cmd.Phone,
			Address:     cmd.Address,
			DateOfBirth: cmd.DateOfBirth,
		},
		Range:      dr,
		HasParking: cmd.HasParking,
		TotalPrice: quote.Total,
		CreatedAt:  handlersupport.NowFunc(h.Clock),
	})
	if err != nil {
		return nil, err
	}

	if h.Contracts != nil {
		ref, err := h.Contracts.Generate(ctx, policies.ContractInput{Booking: b, Apartment: apt, Price: quote, Revision: "request"})
		if err != nil {
			return nil, err
		}
		handlersupport.DiscardContractOnRollback(ctx, h.Contracts, ref, h.logger())
		b.ContractRef = ref
	}

	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := h.record(ctx, b); err != nil {
		return nil, err
	}

	contractURL := handlersupport.ContractURL(ctx, h.Linker, b.ContractRef, h.Logger)
	notices := []policies.Notification{customerNotice(policies.TemplateRequestReceived, b, apt, contractURL)}
	if h.OwnerEmail != "" {
		notices = append(notices, policies.Notification{
			Template: policies.TemplateNewRequest,
			To:       h.OwnerEmail,
			ReplyTo:  b.Customer.Email,
			Data:     mailFor(b, apt, contractURL),
		})
	}
	h.enqueue(ctx, notices...)

	return &CreateBookingResult{
		Booking: dto.MapBooking(b, contractURL),
		Quote:   dto.MapQuote(string(apt.ID), dr, quote),
	}, nil
}

func (h *CreateBookingHandler) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}

var _ commands.Handler[CreateBookingCommand, *CreateBookingResult] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = CreateBookingCommand{}
