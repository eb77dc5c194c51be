package sqlstore

import (
	"strings"
	"time"

	domainapartment "staybook/internal/domain/apartment"
	domainauth "staybook/internal/domain/auth"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	domainuser "staybook/internal/domain/user"
)

type apartmentModel struct {
	ID                   string `gorm:"primaryKey;size:64"`
	Slug                 string `gorm:"uniqueIndex;size:128;not null"`
	Name                 string `gorm:"size:200;not null"`
	Description          string
	ChangeoverDay        int    `gorm:"not null"`
	DefaultRateCents     int64  `gorm:"not null"`
	Currency             string `gorm:"size:3;not null"`
	ParkingWeeklyCents   *int64
	ArrivalInstruction   string
	DepartureInstruction string
	ParkingInstruction   string
	LockSeq              int64 `gorm:"not null;default:0"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Version              int64 `gorm:"not null"`
}

func (apartmentModel) TableName() string { return "apartments" }

type seasonalRateModel struct {
	ApartmentID string    `gorm:"primaryKey;size:64"`
	WeekStart   time.Time `gorm:"primaryKey;type:date"`
	PriceCents  int64     `gorm:"not null"`
	Currency    string    `gorm:"size:3;not null"`
}

func (seasonalRateModel) TableName() string { return "seasonal_rates" }

type bookingModel struct {
	ID                     string    `gorm:"primaryKey;size:64"`
	ApartmentID            string    `gorm:"size:64;not null;index:idx_bookings_apartment_status,priority:1"`
	CustomerName           string    `gorm:"size:200;not null"`
	CustomerEmail          string    `gorm:"size:320;not null"`
	CustomerPhone          string    `gorm:"size:40"`
	CustomerAddress        string    `gorm:"size:400"`
	CustomerDateOfBirth    string    `gorm:"size:20"`
	StartDate              time.Time `gorm:"type:date;not null"`
	EndDate                time.Time `gorm:"type:date;not null"`
	Status                 string    `gorm:"size:16;not null;index:idx_bookings_apartment_status,priority:2"`
	HasParking             bool      `gorm:"not null"`
	TotalCents             int64     `gorm:"not null"`
	PaidCents              int64     `gorm:"not null"`
	Currency               string    `gorm:"size:3;not null"`
	ContractRef            string
	CustomArrivalMessage   string
	CustomDepartureMessage string
	ArrivalMailDate        *time.Time `gorm:"type:date"`
	DepartureMailDate      *time.Time `gorm:"type:date"`
	SentArrival            bool       `gorm:"not null"`
	SentDeparture          bool       `gorm:"not null"`
	SentParking            bool       `gorm:"not null"`
	CreatedAt              time.Time  `gorm:"index"`
	UpdatedAt              time.Time
	Version                int64 `gorm:"not null"`
}

func (bookingModel) TableName() string { return "bookings" }

type outboxModel struct {
	ID            string    `gorm:"primaryKey;size:64"`
	Name          string    `gorm:"size:128;not null"`
	Payload       []byte    `gorm:"not null"`
	OccurredAt    time.Time `gorm:"not null"`
	Aggregate     string    `gorm:"size:64"`
	Headers       string
	Attempts      int       `gorm:"not null;default:0"`
	NextAttemptAt time.Time `gorm:"index:idx_outbox_due,priority:2;not null"`
	ClaimedBy     string    `gorm:"size:64"`
	ClaimedAt     *time.Time
	SentAt        *time.Time `gorm:"index:idx_outbox_due,priority:1"`
	LastError     string
	CreatedAt     time.Time
}

func (outboxModel) TableName() string { return "outbox" }

type idempotencyModel struct {
	Key        string `gorm:"primaryKey;size:255"`
	Payload    []byte
	Error      string
	ErrorKind  string    `gorm:"size:32"`
	OccurredAt time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"index;not null"`
}

func (idempotencyModel) TableName() string { return "idempotency_keys" }

type operatorModel struct {
	ID           string `gorm:"primaryKey;size:64"`
	Email        string `gorm:"uniqueIndex;size:320;not null"`
	Name         string `gorm:"size:200"`
	PasswordHash string `gorm:"not null"`
	Roles        string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (operatorModel) TableName() string { return "operators" }

type sessionModel struct {
	Token     string `gorm:"primaryKey;size:128"`
	UserID    string `gorm:"size:64;not null"`
	Roles     string `gorm:"not null"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index;not null"`
}

func (sessionModel) TableName() string { return "sessions" }

type leaseModel struct {
	Name      string    `gorm:"primaryKey;size:128"`
	Holder    string    `gorm:"size:128;not null"`
	ExpiresAt time.Time `gorm:"not null"`
}

func (leaseModel) TableName() string { return "leases" }

func allModels() []any {
	return []any{
		&apartmentModel{}, &seasonalRateModel{}, &bookingModel{}, &outboxModel{},
		&idempotencyModel{}, &operatorModel{}, &sessionModel{}, &leaseModel{},
	}
}

func apartmentFromDomain(a *domainapartment.Apartment) apartmentModel {
	m := apartmentModel{
		ID:                   string(a.ID),
		Slug:                 a.Slug,
		Name:                 a.Name,
		Description:          a.Description,
		ChangeoverDay:        int(a.ChangeoverDay),
		DefaultRateCents:     a.DefaultRate.Amount,
		Currency:             a.DefaultRate.Currency,
		ArrivalInstruction:   a.ArrivalInstruction,
		DepartureInstruction: a.DepartureInstruction,
		ParkingInstruction:   a.ParkingInstruction,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
		Version:              a.Version,
	}
	if a.ParkingWeekly != nil {
		cents := a.ParkingWeekly.Amount
		m.ParkingWeeklyCents = &cents
	}
	return m
}

func (m apartmentModel) toDomain() *domainapartment.Apartment {
	a := &domainapartment.Apartment{
		ID:                   domainapartment.ID(m.ID),
		Slug:                 m.Slug,
		Name:                 m.Name,
		Description:          m.Description,
		ChangeoverDay:        time.Weekday(m.ChangeoverDay),
		DefaultRate:          money.Money{Amount: m.DefaultRateCents, Currency: m.Currency},
		ArrivalInstruction:   m.ArrivalInstruction,
		DepartureInstruction: m.DepartureInstruction,
		ParkingInstruction:   m.ParkingInstruction,
		CreatedAt:            m.CreatedAt.UTC(),
		UpdatedAt:            m.UpdatedAt.UTC(),
		Version:              m.Version,
	}
	if m.ParkingWeeklyCents != nil {
		a.ParkingWeekly = &money.Money{Amount: *m.ParkingWeeklyCents, Currency: m.Currency}
	}
	return a
}

func (m seasonalRateModel) toDomain() domainapartment.SeasonalRate {
	return domainapartment.SeasonalRate{
		ApartmentID: domainapartment.ID(m.ApartmentID),
		WeekStart:   daterange.Normalize(m.WeekStart.UTC()),
		Price:       money.Money{Amount: m.PriceCents, Currency: m.Currency},
	}
}

func bookingFromDomain(b *domainbooking.Booking) bookingModel {
	return bookingModel{
		ID:                     string(b.ID),
		ApartmentID:            string(b.ApartmentID),
		CustomerName:           b.Customer.Name,
		CustomerEmail:          b.Customer.Email,
		CustomerPhone:          b.Customer.Phone,
		CustomerAddress:        b.Customer.Address,
		CustomerDateOfBirth:    b.Customer.DateOfBirth,
		StartDate:              dateColumn(b.Range.Start),
		EndDate:                dateColumn(b.Range.End),
		Status:                 string(b.Status),
		HasParking:             b.HasParking,
		TotalCents:             b.TotalPrice.Amount,
		PaidCents:              b.AmountPaid.Amount,
		Currency:               b.TotalPrice.Currency,
		ContractRef:            b.ContractRef,
		CustomArrivalMessage:   b.CustomArrivalMessage,
		CustomDepartureMessage: b.CustomDepartureMessage,
		ArrivalMailDate:        optionalDate(b.ArrivalMailDate),
		DepartureMailDate:      optionalDate(b.DepartureMailDate),
		SentArrival:            b.SentArrival,
		SentDeparture:          b.SentDeparture,
		SentParking:            b.SentParking,
		CreatedAt:              b.CreatedAt,
		UpdatedAt:              b.UpdatedAt,
		Version:                b.Version,
	}
}

func (m bookingModel) toDomain() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:          domainbooking.ID(m.ID),
		ApartmentID: domainapartment.ID(m.ApartmentID),
		Customer: domainbooking.Customer{
			Name:        m.CustomerName,
			Email:       m.CustomerEmail,
			Phone:       m.CustomerPhone,
			Address:     m.CustomerAddress,
			DateOfBirth: m.CustomerDateOfBirth,
		},
		Range:                  daterange.DateRange{Start: daterange.Normalize(m.StartDate.UTC()), End: daterange.Normalize(m.EndDate.UTC())},
		Status:                 domainbooking.Status(m.Status),
		HasParking:             m.HasParking,
		TotalPrice:             money.Money{Amount: m.TotalCents, Currency: m.Currency},
		AmountPaid:             money.Money{Amount: m.PaidCents, Currency: m.Currency},
		ContractRef:            m.ContractRef,
		CustomArrivalMessage:   m.CustomArrivalMessage,
		CustomDepartureMessage: m.CustomDepartureMessage,
		ArrivalMailDate:        readDate(m.ArrivalMailDate),
		DepartureMailDate:      readDate(m.DepartureMailDate),
		SentArrival:            m.SentArrival,
		SentDeparture:          m.SentDeparture,
		SentParking:            m.SentParking,
		CreatedAt:              m.CreatedAt.UTC(),
		UpdatedAt:              m.UpdatedAt.UTC(),
		Version:                m.Version,
	}
}

func operatorFromDomain(op *domainuser.Operator) operatorModel {
	return operatorModel{
		ID:           string(op.ID),
		Email:        op.Email,
		Name:         op.Name,
		PasswordHash: op.PasswordHash,
		Roles:        joinRoles(op.Roles),
		CreatedAt:    op.CreatedAt,
		UpdatedAt:    op.UpdatedAt,
	}
}

func (m operatorModel) toDomain() *domainuser.Operator {
	return &domainuser.Operator{
		ID:           domainuser.ID(m.ID),
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		Roles:        splitRoles(m.Roles),
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

func (m sessionModel) toDomain() *domainauth.Session {
	return &domainauth.Session{
		Token:     domainauth.Token(m.Token),
		UserID:    domainuser.ID(m.UserID),
		Roles:     splitRoles(m.Roles),
		CreatedAt: m.CreatedAt.UTC(),
		ExpiresAt: m.ExpiresAt.UTC(),
	}
}

func joinRoles(roles []domainuser.Role) string {
	parts := make([]string, 0, len(roles))
	for _, r := range roles {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ",")
}

func splitRoles(raw string) []domainuser.Role {
	var out []domainuser.Role
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, domainuser.Role(part))
		}
	}
	return out
}

// dateColumn stores calendar dates at midnight UTC so both dialects compare them as dates.
func dateColumn(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func optionalDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := dateColumn(*t)
	return &v
}

func readDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := daterange.Normalize(t.UTC())
	return &v
}
