package memory

import (
	"context"
	"errors"
	"sync"

	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/faults"
)

var (
	ErrUnitClosed    = errors.New("memory: unit of work already finished")
	ErrReadOnlyWrite = errors.New("memory: write in read-only unit of work")

	errApartmentConflict error = faults.Conflict("apartment: concurrent update")
)

// Store keeps apartments and bookings in process. Units stage their writes and apply
// them atomically at commit, after checking versions and the confirmed-overlap rule.
type Store struct {
	mu         sync.RWMutex
	apartments map[domainapartment.ID]*domainapartment.Apartment
	rates      map[domainapartment.ID]map[string]domainapartment.SeasonalRate
	bookings   map[domainbooking.ID]*domainbooking.Booking
	events     []outboxEntry

	locksMu sync.Mutex
	locks   map[domainapartment.ID]chan struct{}

	wake chan struct{}
}

func NewStore() *Store {
	return &Store{
		apartments: make(map[domainapartment.ID]*domainapartment.Apartment),
		rates:      make(map[domainapartment.ID]map[string]domainapartment.SeasonalRate),
		bookings:   make(map[domainbooking.ID]*domainbooking.Booking),
		locks:      make(map[domainapartment.ID]chan struct{}),
		wake:       make(chan struct{}, 1),
	}
}

func (s *Store) Begin(_ context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	u := &unit{
		store:      s,
		readOnly:   opts.ReadOnly,
		apartments: make(map[domainapartment.ID]stagedApartment),
		bookings:   make(map[domainbooking.ID]stagedBooking),
	}
	u.aptRepo = &apartmentRepository{unit: u}
	u.bookingRepo = &bookingRepository{unit: u}
	return u, nil
}

func (s *Store) lockChan(id domainapartment.ID) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	ch, ok := s.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[id] = ch
	}
	return ch
}

type stagedApartment struct {
	apt         *domainapartment.Apartment
	baseVersion int64
}

type stagedBooking struct {
	booking     *domainbooking.Booking
	baseVersion int64
}

type rateOp struct {
	rate    domainapartment.SeasonalRate
	deleted bool
}

type unit struct {
	store    *Store
	readOnly bool
	done     bool

	apartments map[domainapartment.ID]stagedApartment
	rateOps    []rateOp
	bookings   map[domainbooking.ID]stagedBooking
	events     []outbox.EventRecord
	held       []chan struct{}
	heldIDs    map[domainapartment.ID]struct{}

	aptRepo     *apartmentRepository
	bookingRepo *bookingRepository
}

func (u *unit) Apartments() domainapartment.Repository { return u.aptRepo }
func (u *unit) Bookings() domainbooking.Repository     { return u.bookingRepo }

func (u *unit) Commit(context.Context) error {
	if u.done {
		return ErrUnitClosed
	}
	defer u.finish()
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, st := range u.apartments {
		current := int64(0)
		if existing, ok := s.apartments[id]; ok {
			current = existing.Version
		}
		if current != st.baseVersion {
			return errApartmentConflict
		}
	}
	for id, st := range u.bookings {
		current := int64(0)
		if existing, ok := s.bookings[id]; ok {
			current = existing.Version
		}
		if current != st.baseVersion {
			return domainbooking.ErrConcurrentUpdate
		}
	}
	if err := u.checkUniqueSlugs(); err != nil {
		return err
	}
	if err := u.checkConfirmedOverlap(); err != nil {
		return err
	}

	for id, st := range u.apartments {
		s.apartments[id] = cloneApartment(st.apt)
	}
	for _, op := range u.rateOps {
		key := rateKey(op.rate.WeekStart)
		if op.deleted {
			delete(s.rates[op.rate.ApartmentID], key)
			continue
		}
		if s.rates[op.rate.ApartmentID] == nil {
			s.rates[op.rate.ApartmentID] = make(map[string]domainapartment.SeasonalRate)
		}
		s.rates[op.rate.ApartmentID][key] = op.rate
	}
	for id, st := range u.bookings {
		s.bookings[id] = cloneBooking(st.booking)
	}
	for _, rec := range u.events {
		s.events = append(s.events, outboxEntry{record: rec})
	}
	return nil
}

func (u *unit) checkUniqueSlugs() error {
	owners := make(map[string]domainapartment.ID, len(u.store.apartments)+len(u.apartments))
	claim := func(id domainapartment.ID, slug string) error {
		if owner, ok := owners[slug]; ok && owner != id {
			return domainapartment.ErrSlugTaken
		}
		owners[slug] = id
		return nil
	}
	for id, apt := range u.store.apartments {
		if staged, ok := u.apartments[id]; ok {
			apt = staged.apt
		}
		if err := claim(id, apt.Slug); err != nil {
			return err
		}
	}
	for id, st := range u.apartments {
		if err := claim(id, st.apt.Slug); err != nil {
			return err
		}
	}
	return nil
}

// checkConfirmedOverlap is the store's last word on the one-confirmed-stay-per-night rule.
func (u *unit) checkConfirmedOverlap() error {
	for _, st := range u.bookings {
		b := st.booking
		if b.Status != domainbooking.StatusConfirmed {
			continue
		}
		for id, other := range u.store.bookings {
			if id == b.ID {
				continue
			}
			if staged, ok := u.bookings[id]; ok {
				other = staged.booking
			}
			if other.ApartmentID == b.ApartmentID && other.Status == domainbooking.StatusConfirmed && other.Range.Overlaps(b.Range) {
				return faults.Conflict("booking: confirmed stays overlap", string(other.ID))
			}
		}
		for id, other := range u.bookings {
			if id == b.ID {
				continue
			}
			if other.booking.ApartmentID == b.ApartmentID && other.booking.Status == domainbooking.StatusConfirmed && other.booking.Range.Overlaps(b.Range) {
				return faults.Conflict("booking: confirmed stays overlap", string(id))
			}
		}
	}
	return nil
}

func (u *unit) Rollback(context.Context) error {
	if u.done {
		return nil
	}
	u.finish()
	return nil
}

func (u *unit) finish() {
	u.done = true
	for i := len(u.held) - 1; i >= 0; i-- {
		<-u.held[i]
	}
	u.held = nil
	u.heldIDs = nil
}

func (u *unit) lock(ctx context.Context, id domainapartment.ID) error {
	if u.done {
		return ErrUnitClosed
	}
	if _, ok := u.heldIDs[id]; ok {
		return nil
	}
	ch := u.store.lockChan(id)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return faults.Upstream("memory: waiting for apartment lock", ctx.Err())
	}
	if u.heldIDs == nil {
		u.heldIDs = make(map[domainapartment.ID]struct{})
	}
	u.heldIDs[id] = struct{}{}
	u.held = append(u.held, ch)
	return nil
}

func (u *unit) writable() error {
	switch {
	case u.done:
		return ErrUnitClosed
	case u.readOnly:
		return ErrReadOnlyWrite
	default:
		return nil
	}
}

var _ uow.UoWFactory = (*Store)(nil)
