package reminders

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"staybook/internal/app/commands"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/notify"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
)

const (
	runSweepKey = "reminders.sweep"
	leaseTTL    = 20 * time.Hour

	DefaultArrivalMessage   = "Hello {{name}}, we look forward to welcoming you on {{date}}. Keys are waiting for you at the apartment."
	DefaultDepartureMessage = "Hello {{name}}, we hope you enjoyed your stay. Please leave the keys on the table when you check out tomorrow."
	DefaultParkingMessage   = "Your parking space is reserved for the whole stay. Access details are in the apartment guide."
)

// RunSweepCommand sends the reminders due on Day (today when empty).
type RunSweepCommand struct {
	Day string
}

func (c RunSweepCommand) Key() string { return runSweepKey }

type SweepResult struct {
	Day       string         `json:"day"`
	Skipped   bool           `json:"skipped"`
	Reminders map[string]int `json:"reminders"`
}

// SweepHandler claims each due reminder by committing its sent flag in the same unit of
// work that queues the mail, so a reminder goes out at most once.
type SweepHandler struct {
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Lease    policies.Lease
	Location *time.Location
	Clock    func() time.Time
	Logger   *slog.Logger
}

func (h *SweepHandler) Handle(ctx context.Context, cmd RunSweepCommand) (*SweepResult, error) {
	unit, err := handlersupport.RequireUnit(ctx)
	if err != nil {
		return nil, err
	}
	now := handlersupport.NowFunc(h.Clock)
	today := handlersupport.Today(now, h.Location)
	if strings.TrimSpace(cmd.Day) != "" {
		today, err = daterange.Parse(cmd.Day, h.Location)
		if err != nil {
			return nil, err
		}
	}
	result := &SweepResult{Day: daterange.Format(today), Reminders: map[string]int{}}

	if h.Lease != nil {
		ok, err := h.Lease.Acquire(ctx, "reminders:"+result.Day, leaseTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			h.logger().Info("reminder sweep already claimed", "day", result.Day)
			result.Skipped = true
			return result, nil
		}
	}

	bookings, err := unit.Bookings().List(ctx, domainbooking.ListFilter{Statuses: []domainbooking.Status{domainbooking.StatusConfirmed}})
	if err != nil {
		return nil, err
	}
	apartments := map[domainapartment.ID]*domainapartment.Apartment{}
	var touched []outbox.Recorder
	var notices []policies.Notification
	for _, b := range bookings {
		due := make([]domainbooking.ReminderKind, 0, len(domainbooking.ReminderKinds))
		for _, kind := range domainbooking.ReminderKinds {
			if b.ReminderDue(kind, today) {
				due = append(due, kind)
			}
		}
		if len(due) == 0 {
			continue
		}
		apt, ok := apartments[b.ApartmentID]
		if !ok {
			apt, err = unit.Apartments().ByID(ctx, b.ApartmentID)
			if err != nil {
				return nil, err
			}
			apartments[b.ApartmentID] = apt
		}
		for _, kind := range due {
			if err := b.MarkReminderSent(kind, now); err != nil {
				return nil, err
			}
			notices = append(notices, reminderNotice(kind, b, apt))
			result.Reminders[string(kind)]++
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			return nil, err
		}
		touched = append(touched, b)
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, touched...); err != nil {
		return nil, err
	}
	if len(notices) > 0 {
		if err := notify.Enqueue(ctx, notices...); err != nil {
			return nil, err
		}
	}
	h.logger().Info("reminder sweep finished", "day", result.Day, "bookings", len(touched), "reminders", len(notices))
	return result, nil
}

func (h *SweepHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func reminderNotice(kind domainbooking.ReminderKind, b *domainbooking.Booking, apt *domainapartment.Apartment) policies.Notification {
	data := policies.BookingMail{
		BookingID:     string(b.ID),
		CustomerName:  b.Customer.Name,
		CustomerEmail: b.Customer.Email,
		ApartmentName: apt.Name,
		StartDate:     daterange.Format(b.Range.Start),
		EndDate:       daterange.Format(b.Range.End),
		HasParking:    b.HasParking,
		Body:          ReminderBody(kind, b, apt),
	}
	template := policies.TemplateArrival
	switch kind {
	case domainbooking.ReminderDeparture:
		template = policies.TemplateDeparture
	case domainbooking.ReminderParking:
		template = policies.TemplateParking
	}
	return policies.Notification{Template: template, To: b.Customer.Email, Data: data}
}

// ReminderBody picks the booking's own message, then the apartment's instruction, then
// the default, and fills in {{name}} and {{date}}.
func ReminderBody(kind domainbooking.ReminderKind, b *domainbooking.Booking, apt *domainapartment.Apartment) string {
	var body string
	switch kind {
	case domainbooking.ReminderArrival:
		body = firstNonBlank(b.CustomArrivalMessage, apt.ArrivalInstruction, DefaultArrivalMessage)
	case domainbooking.ReminderDeparture:
		body = firstNonBlank(b.CustomDepartureMessage, apt.DepartureInstruction, DefaultDepartureMessage)
	case domainbooking.ReminderParking:
		body = firstNonBlank(apt.ParkingInstruction, DefaultParkingMessage)
	}
	return strings.NewReplacer(
		"{{name}}", b.Customer.Name,
		"{{date}}", b.Range.Start.Format("02/01/2006"),
	).Replace(body)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var _ commands.Handler[RunSweepCommand, *SweepResult] = (*SweepHandler)(nil)
