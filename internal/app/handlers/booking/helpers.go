package booking

import (
	"context"
	"log/slog"

	"staybook/internal/app/notify"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
)

// Deps is shared by the booking command handlers.
type Deps struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Linker  policies.ContractLinker
	Logger  *slog.Logger
}

func (d Deps) encoder() outbox.EventEncoder {
	if d.Encoder != nil {
		return d.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (d Deps) record(ctx context.Context, aggregates ...*domainbooking.Booking) error {
	recorders := make([]outbox.Recorder, 0, len(aggregates))
	for _, b := range aggregates {
		recorders = append(recorders, b)
	}
	return outbox.RecordDomainEvents(ctx, d.Outbox, d.encoder(), recorders...)
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// enqueue hands notifications to the batch of the running command. Missing batches only
// happen when handlers run outside the bus, so the messages are dropped with a warning.
func (d Deps) enqueue(ctx context.Context, items ...policies.Notification) {
	if err := notify.Enqueue(ctx, items...); err != nil {
		d.logger().Warn("notifications dropped", "count", len(items), "error", err)
	}
}

func mailFor(b *domainbooking.Booking, apt *domainapartment.Apartment, contractURL string) policies.BookingMail {
	m := policies.BookingMail{
		BookingID:     string(b.ID),
		CustomerName:  b.Customer.Name,
		CustomerEmail: b.Customer.Email,
		CustomerPhone: b.Customer.Phone,
		StartDate:     daterange.Format(b.Range.Start),
		EndDate:       daterange.Format(b.Range.End),
		Total:         b.TotalPrice.String(),
		HasParking:    b.HasParking,
		ContractURL:   contractURL,
	}
	if apt != nil {
		m.ApartmentName = apt.Name
	}
	return m
}

func customerNotice(template string, b *domainbooking.Booking, apt *domainapartment.Apartment, contractURL string) policies.Notification {
	return policies.Notification{
		Template: template,
		To:       b.Customer.Email,
		Data:     mailFor(b, apt, contractURL),
	}
}
