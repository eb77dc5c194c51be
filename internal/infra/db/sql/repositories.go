package sqlstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/faults"
)

var errApartmentConflict error = faults.Conflict("apartment: concurrent update")

type apartmentRepository struct {
	unit *unit
}

func (r *apartmentRepository) ByID(ctx context.Context, id domainapartment.ID) (*domainapartment.Apartment, error) {
	return r.first(ctx, "id = ?", string(id))
}

func (r *apartmentRepository) BySlug(ctx context.Context, slug string) (*domainapartment.Apartment, error) {
	return r.first(ctx, "slug = ?", slug)
}

func (r *apartmentRepository) first(ctx context.Context, query string, arg any) (*domainapartment.Apartment, error) {
	db, err := r.unit.conn(ctx)
	if err != nil {
		return nil, err
	}
	var m apartmentModel
	if err := db.Where(query, arg).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainapartment.ErrNotFound
		}
		return nil, translate(err)
	}
	return m.toDomain(), nil
}

func (r *apartmentRepository) List(ctx context.Context) ([]*domainapartment.Apartment, error) {
	db, err := r.unit.conn(ctx)
	if err != nil {
		return nil, err
	}
	var rows []apartmentModel
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*domainapartment.Apartment, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (r *apartmentRepository) Save(ctx context.Context, apt *domainapartment.Apartment) error {
	db, err := r.unit.writer(ctx)
	if err != nil {
		return err
	}
	m := apartmentFromDomain(apt)
	if apt.Version == 0 {
		m.Version = 1
		if err := db.Create(&m).Error; err != nil {
			if errors.Is(translate(err), faults.ErrConflict) {
				return errApartmentConflict
			}
			return translate(err)
		}
		apt.Version = 1
		return nil
	}
	res := db.Model(&apartmentModel{}).
		Where("id = ? AND version = ?", m.ID, apt.Version).
		Updates(map[string]any{
			"slug":                  m.Slug,
			"name":                  m.Name,
			"description":           m.Description,
			"changeover_day":        m.ChangeoverDay,
			"default_rate_cents":    m.DefaultRateCents,
			"currency":              m.Currency,
			"parking_weekly_cents":  m.ParkingWeeklyCents,
			"arrival_instruction":   m.ArrivalInstruction,
			"departure_instruction": m.DepartureInstruction,
			"parking_instruction":   m.ParkingInstruction,
			"updated_at":            m.UpdatedAt,
			"version":               apt.Version + 1,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return errApartmentConflict
	}
	apt.Version++
	return nil
}

func (r *apartmentRepository) SeasonalRates(ctx context.Context, id domainapartment.ID) ([]domainapartment.SeasonalRate, error) {
	db, err := r.unit.conn(ctx)
	if err != nil {
		return nil, err
	}
	var rows []seasonalRateModel
	if err := db.Where("apartment_id = ?", string(id)).Order("week_start").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]domainapartment.SeasonalRate, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (r *apartmentRepository) SaveSeasonalRate(ctx context.Context, rate domainapartment.SeasonalRate) error {
	db, err := r.unit.writer(ctx)
	if err != nil {
		return err
	}
	m := seasonalRateModel{
		ApartmentID: string(rate.ApartmentID),
		WeekStart:   dateColumn(rate.WeekStart),
		PriceCents:  rate.Price.Amount,
		Currency:    rate.Price.Currency,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "apartment_id"}, {Name: "week_start"}},
		DoUpdates: clause.AssignmentColumns([]string{"price_cents", "currency"}),
	}).Create(&m).Error
	return translate(err)
}

func (r *apartmentRepository) DeleteSeasonalRate(ctx context.Context, id domainapartment.ID, weekStart time.Time) error {
	db, err := r.unit.writer(ctx)
	if err != nil {
		return err
	}
	res := db.Where("apartment_id = ? AND week_start = ?", string(id), dateColumn(weekStart)).Delete(&seasonalRateModel{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return domainapartment.ErrSeasonalRateNotFound
	}
	return nil
}

// LockForBooking takes a row lock on the apartment that lasts until the transaction ends.
// SQLite has no SELECT ... FOR UPDATE; bumping a counter takes its database write lock.
func (r *apartmentRepository) LockForBooking(ctx context.Context, id domainapartment.ID) error {
	if _, ok := r.unit.locked[id]; ok {
		return nil
	}
	db, err := r.unit.conn(ctx)
	if err != nil {
		return err
	}
	if r.unit.store.Dialect() == DialectPostgres {
		var m apartmentModel
		err = db.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").Where("id = ?", string(id)).Take(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainapartment.ErrNotFound
		}
		if err != nil {
			return translate(err)
		}
	} else {
		res := db.Model(&apartmentModel{}).Where("id = ?", string(id)).UpdateColumn("lock_seq", gorm.Expr("lock_seq + 1"))
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return domainapartment.ErrNotFound
		}
	}
	r.unit.locked[id] = struct{}{}
	return nil
}

type bookingRepository struct {
	unit *unit
}

func (r *bookingRepository) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	db, err := r.unit.conn(ctx)
	if err != nil {
		return nil, err
	}
	var m bookingModel
	if err := db.Where("id = ?", string(id)).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, translate(err)
	}
	return m.toDomain(), nil
}

func (r *bookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	db, err := r.unit.writer(ctx)
	if err != nil {
		return err
	}
	m := bookingFromDomain(b)
	if b.Version == 0 {
		m.Version = 1
		if err := db.Create(&m).Error; err != nil {
			return translate(err)
		}
		b.Version = 1
		return nil
	}
	res := db.Model(&bookingModel{}).
		Where("id = ? AND version = ?", m.ID, b.Version).
		Updates(map[string]any{
			"customer_name":            m.CustomerName,
			"customer_email":           m.CustomerEmail,
			"customer_phone":           m.CustomerPhone,
			"customer_address":         m.CustomerAddress,
			"customer_date_of_birth":   m.CustomerDateOfBirth,
			"start_date":               m.StartDate,
			"end_date":                 m.EndDate,
			"status":                   m.Status,
			"has_parking":              m.HasParking,
			"total_cents":              m.TotalCents,
			"paid_cents":               m.PaidCents,
			"currency":                 m.Currency,
			"contract_ref":             m.ContractRef,
			"custom_arrival_message":   m.CustomArrivalMessage,
			"custom_departure_message": m.CustomDepartureMessage,
			"arrival_mail_date":        m.ArrivalMailDate,
			"departure_mail_date":      m.DepartureMailDate,
			"sent_arrival":             m.SentArrival,
			"sent_departure":           m.SentDeparture,
			"sent_parking":             m.SentParking,
			"updated_at":               m.UpdatedAt,
			"version":                  b.Version + 1,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.ByID(ctx, b.ID); err != nil {
			return err
		}
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version++
	return nil
}

func (r *bookingRepository) List(ctx context.Context, filter domainbooking.ListFilter) ([]*domainbooking.Booking, error) {
	db, err := r.unit.conn(ctx)
	if err != nil {
		return nil, err
	}
	q := db.Model(&bookingModel{})
	if filter.ApartmentID != "" {
		q = q.Where("apartment_id = ?", string(filter.ApartmentID))
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(filter.Statuses))
	}
	var rows []bookingModel
	if err := q.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return toBookings(rows), nil
}

func (r *bookingRepository) Overlapping(ctx context.Context, apartmentID domainapartment.ID, dr daterange.DateRange, statuses ...domainbooking.Status) ([]*domainbooking.Booking, error) {
	db, err := r.unit.conn(ctx)
	if err != nil {
		return nil, err
	}
	q := db.Where("apartment_id = ? AND start_date < ? AND end_date > ?", string(apartmentID), dateColumn(dr.End), dateColumn(dr.Start))
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(statuses))
	}
	var rows []bookingModel
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return toBookings(rows), nil
}

func statusStrings(statuses []domainbooking.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func toBookings(rows []bookingModel) []*domainbooking.Booking {
	out := make([]*domainbooking.Booking, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out
}
