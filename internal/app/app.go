package app

import (
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	accountingapp "staybook/internal/app/handlers/accounting"
	apartmentsapp "staybook/internal/app/handlers/apartments"
	availabilityapp "staybook/internal/app/handlers/availability"
	bookingapp "staybook/internal/app/handlers/booking"
	contactapp "staybook/internal/app/handlers/contact"
	pricingapp "staybook/internal/app/handlers/pricing"
	remindersapp "staybook/internal/app/handlers/reminders"
	"staybook/internal/app/middleware"
	"staybook/internal/app/notify"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainpricing "staybook/internal/domain/pricing"
)

// Deps are the ports the application layer runs on.
type Deps struct {
	UoW           uow.UoWFactory
	Outbox        outbox.Outbox
	Encoder       outbox.EventEncoder
	Idempotency   middleware.IdempotencyStore
	Validator     middleware.Validator
	Authorizer    middleware.Authorizer
	Notifier      policies.Notifier
	Notifications notify.Submitter
	Contracts     policies.ContractGenerator
	Linker        policies.ContractLinker
	Lease         policies.Lease
	Pricing       domainpricing.Engine
	Location      *time.Location
	Currency      string
	OwnerEmail    string
	Clock         func() time.Time
	NewID         func() string
	Logger        *slog.Logger
}

type Application struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// Build registers every handler and wraps the buses. Command middleware runs outermost
// first: validation, authorization, idempotency, notifications, outbox flush and the
// transaction, so mail and relay wake-ups only follow committed work.
func Build(d Deps) Application {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Authorizer == nil {
		d.Authorizer = policies.OperatorAuthorizer{}
	}
	bookingDeps := bookingapp.Deps{Outbox: d.Outbox, Encoder: d.Encoder, Linker: d.Linker, Logger: d.Logger}

	cmdBus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](cmdBus, &bookingapp.CreateBookingHandler{
		Deps:       bookingDeps,
		Pricing:    d.Pricing,
		Contracts:  d.Contracts,
		Location:   d.Location,
		OwnerEmail: d.OwnerEmail,
		NewID:      d.NewID,
		Clock:      d.Clock,
	})
	commands.RegisterHandler[bookingapp.ConfirmBookingCommand, *bookingapp.ConfirmBookingResult](cmdBus, &bookingapp.ConfirmBookingHandler{
		Deps:      bookingDeps,
		Pricing:   d.Pricing,
		Contracts: d.Contracts,
		Clock:     d.Clock,
	})
	commands.RegisterHandler[bookingapp.RejectBookingCommand, *bookingapp.BookingResult](cmdBus, &bookingapp.RejectBookingHandler{Deps: bookingDeps, Clock: d.Clock})
	commands.RegisterHandler[bookingapp.CancelBookingCommand, *bookingapp.BookingResult](cmdBus, &bookingapp.CancelBookingHandler{Deps: bookingDeps, Clock: d.Clock})
	commands.RegisterHandler[bookingapp.UpdateBookingCommand, *bookingapp.UpdateBookingResult](cmdBus, &bookingapp.UpdateBookingHandler{Deps: bookingDeps, Location: d.Location, Clock: d.Clock})

	apartments := &apartmentsapp.Handlers{Currency: d.Currency, Location: d.Location, Clock: d.Clock}
	commands.RegisterHandler[apartmentsapp.SaveApartmentCommand, *apartmentsapp.ApartmentResult](cmdBus, commands.HandlerFunc[apartmentsapp.SaveApartmentCommand, *apartmentsapp.ApartmentResult](apartments.Save))
	commands.RegisterHandler[apartmentsapp.SetSeasonalRateCommand, *dto.SeasonalRateDTO](cmdBus, commands.HandlerFunc[apartmentsapp.SetSeasonalRateCommand, *dto.SeasonalRateDTO](apartments.SetSeasonalRate))
	commands.RegisterHandler[apartmentsapp.DeleteSeasonalRateCommand, *struct{}](cmdBus, commands.HandlerFunc[apartmentsapp.DeleteSeasonalRateCommand, *struct{}](apartments.DeleteSeasonalRate))

	if d.Notifier != nil {
		commands.RegisterHandler[contactapp.SendContactCommand, *contactapp.SendContactResult](cmdBus, &contactapp.SendContactHandler{Notifier: d.Notifier, OwnerEmail: d.OwnerEmail})
	}
	commands.RegisterHandler[remindersapp.RunSweepCommand, *remindersapp.SweepResult](cmdBus, &remindersapp.SweepHandler{
		Outbox:   d.Outbox,
		Encoder:  d.Encoder,
		Lease:    d.Lease,
		Location: d.Location,
		Clock:    d.Clock,
		Logger:   d.Logger,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[availabilityapp.CheckAvailabilityQuery, dto.AvailabilityDTO](queryBus, &availabilityapp.CheckAvailabilityHandler{UoWFactory: d.UoW, Location: d.Location})
	queries.RegisterHandler[availabilityapp.BookedDatesQuery, dto.BookedDatesDTO](queryBus, &availabilityapp.BookedDatesHandler{UoWFactory: d.UoW})
	queries.RegisterHandler[pricingapp.QuotePriceQuery, dto.QuoteDTO](queryBus, &pricingapp.QuotePriceHandler{UoWFactory: d.UoW, Pricing: d.Pricing, Location: d.Location})
	queries.RegisterHandler[apartmentsapp.ListApartmentsQuery, dto.ApartmentCollection](queryBus, &apartmentsapp.ListApartmentsHandler{UoWFactory: d.UoW})
	queries.RegisterHandler[apartmentsapp.GetApartmentBySlugQuery, dto.ApartmentDTO](queryBus, &apartmentsapp.GetApartmentBySlugHandler{UoWFactory: d.UoW})
	queries.RegisterHandler[bookingapp.ListBookingsQuery, dto.BookingCollection](queryBus, &bookingapp.ListBookingsHandler{UoWFactory: d.UoW, Linker: d.Linker, Logger: d.Logger})
	queries.RegisterHandler[bookingapp.GetBookingQuery, dto.BookingDTO](queryBus, &bookingapp.GetBookingHandler{UoWFactory: d.UoW, Linker: d.Linker, Logger: d.Logger})
	queries.RegisterHandler[accountingapp.ReportQuery, dto.AccountingReport](queryBus, &accountingapp.ReportHandler{UoWFactory: d.UoW})

	var cmdChain []middleware.CommandMiddleware
	var queryChain []middleware.QueryMiddleware
	if d.Validator != nil {
		cmdChain = append(cmdChain, middleware.Validation(d.Validator))
		queryChain = append(queryChain, middleware.QueryValidation(d.Validator))
	}
	cmdChain = append(cmdChain, middleware.Authorization(d.Authorizer))
	queryChain = append(queryChain, middleware.QueryAuthorization(d.Authorizer))
	if d.Idempotency != nil {
		cmdChain = append(cmdChain, middleware.Idempotency(d.Idempotency, nil, d.Logger))
	}
	if d.Notifications != nil {
		cmdChain = append(cmdChain, middleware.Notifications(d.Notifications))
	}
	if d.Outbox != nil {
		cmdChain = append(cmdChain, middleware.OutboxFlush(d.Outbox, d.Logger))
	}
	cmdChain = append(cmdChain, middleware.Transaction(d.UoW, nil))

	return Application{
		Commands: middleware.ChainCommands(cmdBus, cmdChain...),
		Queries:  middleware.ChainQueries(queryBus, queryChain...),
	}
}
