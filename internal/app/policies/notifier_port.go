package policies

import "context"

const (
	TemplateRequestReceived = "booking_request_received"
	TemplateNewRequest      = "booking_new_request"
	TemplateConfirmed       = "booking_confirmed"
	TemplateRejected        = "booking_rejected"
	TemplateCancelled       = "booking_cancelled"
	TemplateArrival         = "reminder_arrival"
	TemplateDeparture       = "reminder_departure"
	TemplateParking         = "reminder_parking"
	TemplateContact         = "contact_message"
)

// Notification is one message to one recipient. Data feeds the named template.
type Notification struct {
	Template string
	To       string
	ReplyTo  string
	Data     any
}

type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// BookingMail is the template data shared by every booking related message.
type BookingMail struct {
	BookingID     string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	ApartmentName string
	StartDate     string
	EndDate       string
	Total         string
	HasParking    bool
	ContractURL   string
	// Body is the pre-rendered text of reminder messages.
	Body string
}

type ContactMail struct {
	Name    string
	Email   string
	Message string
}
