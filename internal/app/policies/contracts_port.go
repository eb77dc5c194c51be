package policies

import (
	"context"

	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
	domainpricing "staybook/internal/domain/pricing"
)

// ContractInput is everything printed on a rental contract.
type ContractInput struct {
	Booking   *domainbooking.Booking
	Apartment *domainapartment.Apartment
	Price     domainpricing.PriceBreakdown
	// Revision distinguishes the request contract from the one issued at confirmation.
	Revision string
}

// ContractGenerator renders a contract and stores it, returning a stable reference.
// Discard removes a stored contract that never became part of a committed booking.
type ContractGenerator interface {
	Generate(ctx context.Context, in ContractInput) (ref string, err error)
	Discard(ctx context.Context, ref string) error
}

// ContractLinker turns a stored reference into a URL a customer can open.
type ContractLinker interface {
	Link(ctx context.Context, ref string) (string, error)
}
