package memory

import (
	"context"
	"sort"
	"time"

	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
)

type apartmentRepository struct {
	unit *unit
}

func (r *apartmentRepository) ByID(_ context.Context, id domainapartment.ID) (*domainapartment.Apartment, error) {
	if st, ok := r.unit.apartments[id]; ok {
		return cloneApartment(st.apt), nil
	}
	s := r.unit.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	apt, ok := s.apartments[id]
	if !ok {
		return nil, domainapartment.ErrNotFound
	}
	return cloneApartment(apt), nil
}

func (r *apartmentRepository) BySlug(ctx context.Context, slug string) (*domainapartment.Apartment, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, apt := range all {
		if apt.Slug == slug {
			return apt, nil
		}
	}
	return nil, domainapartment.ErrNotFound
}

func (r *apartmentRepository) List(context.Context) ([]*domainapartment.Apartment, error) {
	s := r.unit.store
	s.mu.RLock()
	out := make([]*domainapartment.Apartment, 0, len(s.apartments)+len(r.unit.apartments))
	for id, apt := range s.apartments {
		if _, staged := r.unit.apartments[id]; staged {
			continue
		}
		out = append(out, cloneApartment(apt))
	}
	s.mu.RUnlock()
	for _, st := range r.unit.apartments {
		out = append(out, cloneApartment(st.apt))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *apartmentRepository) Save(ctx context.Context, apt *domainapartment.Apartment) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	base := apt.Version
	if st, ok := r.unit.apartments[apt.ID]; ok {
		if st.apt.Version != apt.Version {
			return errApartmentConflict
		}
		base = st.baseVersion
	} else if stored, err := r.ByID(ctx, apt.ID); err == nil {
		if stored.Version != apt.Version {
			return errApartmentConflict
		}
	} else if apt.Version != 0 {
		return errApartmentConflict
	}
	others, err := r.List(ctx)
	if err != nil {
		return err
	}
	for _, other := range others {
		if other.ID != apt.ID && other.Slug == apt.Slug {
			return domainapartment.ErrSlugTaken
		}
	}
	apt.Version++
	r.unit.apartments[apt.ID] = stagedApartment{apt: cloneApartment(apt), baseVersion: base}
	return nil
}

func (r *apartmentRepository) SeasonalRates(_ context.Context, id domainapartment.ID) ([]domainapartment.SeasonalRate, error) {
	s := r.unit.store
	s.mu.RLock()
	merged := make(map[string]domainapartment.SeasonalRate, len(s.rates[id]))
	for k, v := range s.rates[id] {
		merged[k] = v
	}
	s.mu.RUnlock()
	for _, op := range r.unit.rateOps {
		if op.rate.ApartmentID != id {
			continue
		}
		if op.deleted {
			delete(merged, rateKey(op.rate.WeekStart))
		} else {
			merged[rateKey(op.rate.WeekStart)] = op.rate
		}
	}
	out := make([]domainapartment.SeasonalRate, 0, len(merged))
	for _, v := range merged {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.Before(out[j].WeekStart) })
	return out, nil
}

func (r *apartmentRepository) SaveSeasonalRate(_ context.Context, rate domainapartment.SeasonalRate) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	rate.WeekStart = daterange.Normalize(rate.WeekStart)
	r.unit.rateOps = append(r.unit.rateOps, rateOp{rate: rate})
	return nil
}

func (r *apartmentRepository) DeleteSeasonalRate(ctx context.Context, id domainapartment.ID, weekStart time.Time) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	rates, err := r.SeasonalRates(ctx, id)
	if err != nil {
		return err
	}
	key := rateKey(weekStart)
	for _, rate := range rates {
		if rateKey(rate.WeekStart) == key {
			r.unit.rateOps = append(r.unit.rateOps, rateOp{rate: rate, deleted: true})
			return nil
		}
	}
	return domainapartment.ErrSeasonalRateNotFound
}

func (r *apartmentRepository) LockForBooking(ctx context.Context, id domainapartment.ID) error {
	return r.unit.lock(ctx, id)
}

type bookingRepository struct {
	unit *unit
}

func (r *bookingRepository) ByID(_ context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	if st, ok := r.unit.bookings[id]; ok {
		return cloneBooking(st.booking), nil
	}
	s := r.unit.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *bookingRepository) Save(_ context.Context, b *domainbooking.Booking) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	var base int64
	if st, ok := r.unit.bookings[b.ID]; ok {
		if st.booking.Version != b.Version {
			return domainbooking.ErrConcurrentUpdate
		}
		base = st.baseVersion
	} else {
		s := r.unit.store
		s.mu.RLock()
		stored, exists := s.bookings[b.ID]
		s.mu.RUnlock()
		switch {
		case exists && stored.Version != b.Version:
			return domainbooking.ErrConcurrentUpdate
		case !exists && b.Version != 0:
			return domainbooking.ErrNotFound
		}
		base = b.Version
	}
	b.Version++
	r.unit.bookings[b.ID] = stagedBooking{booking: cloneBooking(b), baseVersion: base}
	return nil
}

func (r *bookingRepository) List(_ context.Context, filter domainbooking.ListFilter) ([]*domainbooking.Booking, error) {
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.view() {
		if filter.ApartmentID != "" && b.ApartmentID != filter.ApartmentID {
			continue
		}
		if !statusIn(b.Status, filter.Statuses) {
			continue
		}
		out = append(out, cloneBooking(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *bookingRepository) Overlapping(_ context.Context, apartmentID domainapartment.ID, dr daterange.DateRange, statuses ...domainbooking.Status) ([]*domainbooking.Booking, error) {
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.view() {
		if b.ApartmentID != apartmentID || !statusIn(b.Status, statuses) || !b.Range.Overlaps(dr) {
			continue
		}
		out = append(out, cloneBooking(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// view merges committed bookings with the ones staged in this unit.
func (r *bookingRepository) view() map[domainbooking.ID]*domainbooking.Booking {
	s := r.unit.store
	s.mu.RLock()
	merged := make(map[domainbooking.ID]*domainbooking.Booking, len(s.bookings)+len(r.unit.bookings))
	for id, b := range s.bookings {
		merged[id] = b
	}
	s.mu.RUnlock()
	for id, st := range r.unit.bookings {
		merged[id] = st.booking
	}
	return merged
}

func statusIn(s domainbooking.Status, statuses []domainbooking.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func rateKey(t time.Time) string {
	return daterange.Format(t)
}

func cloneApartment(a *domainapartment.Apartment) *domainapartment.Apartment {
	clone := *a
	if a.ParkingWeekly != nil {
		p := *a.ParkingWeekly
		clone.ParkingWeekly = &p
	}
	return &clone
}

// cloneBooking copies the stored state; pending domain events are never stored.
func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	clone := *b
	clone.EventRecorder = events.EventRecorder{}
	clone.ArrivalMailDate = cloneTime(b.ArrivalMailDate)
	clone.DepartureMailDate = cloneTime(b.DepartureMailDate)
	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
