package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"staybook/internal/app/uow"
	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/faults"
)

var (
	ErrReadOnlyWrite = errors.New("mongo: write in read-only unit of work")

	errApartmentConflict = faults.Conflict("apartment: slug taken or concurrent update")
)

const stayOverlapMsg = "booking: confirmed stays overlap"

// writable rejects writes from units opened read-only.
func writable(ctx context.Context) error {
	if u, ok := uow.FromContext(ctx); ok {
		if unit, ok := u.(*Unit); ok && unit.readOnly {
			return ErrReadOnlyWrite
		}
	}
	return nil
}

type ApartmentRepository struct {
	col   *mongo.Collection
	rates *mongo.Collection
	locks *mongo.Collection
}

func NewApartmentRepository(db *mongo.Database) *ApartmentRepository {
	return &ApartmentRepository{
		col:   db.Collection(colApartments),
		rates: db.Collection(colSeasonalRates),
		locks: db.Collection(colLocks),
	}
}

func (r *ApartmentRepository) ByID(ctx context.Context, id domainapartment.ID) (*domainapartment.Apartment, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *ApartmentRepository) BySlug(ctx context.Context, slug string) (*domainapartment.Apartment, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *ApartmentRepository) findOne(ctx context.Context, filter bson.M) (*domainapartment.Apartment, error) {
	var doc apartmentDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainapartment.ErrNotFound
		}
		return nil, translate(err)
	}
	return doc.toAggregate(), nil
}

func (r *ApartmentRepository) List(ctx context.Context) ([]*domainapartment.Apartment, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, translate(err)
	}
	var docs []apartmentDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err)
	}
	out := make([]*domainapartment.Apartment, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func (r *ApartmentRepository) Save(ctx context.Context, apt *domainapartment.Apartment) error {
	if err := writable(ctx); err != nil {
		return err
	}
	doc := newApartmentDocument(apt)
	doc.Version = apt.Version + 1
	if apt.Version == 0 {
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return errApartmentConflict
			}
			return translate(err)
		}
		apt.Version = doc.Version
		return nil
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": apt.Version}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errApartmentConflict
		}
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return errApartmentConflict
	}
	apt.Version = doc.Version
	return nil
}

func (r *ApartmentRepository) SeasonalRates(ctx context.Context, id domainapartment.ID) ([]domainapartment.SeasonalRate, error) {
	cur, err := r.rates.Find(ctx, bson.M{"apartment_id": string(id)}, options.Find().SetSort(bson.D{{Key: "week_start", Value: 1}}))
	if err != nil {
		return nil, translate(err)
	}
	var docs []seasonalRateDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err)
	}
	out := make([]domainapartment.SeasonalRate, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *ApartmentRepository) SaveSeasonalRate(ctx context.Context, rate domainapartment.SeasonalRate) error {
	if err := writable(ctx); err != nil {
		return err
	}
	filter := bson.M{"apartment_id": string(rate.ApartmentID), "week_start": daterange.Normalize(rate.WeekStart)}
	update := bson.M{"$set": bson.M{"price_cents": rate.Price.Amount, "currency": rate.Price.Currency}}
	_, err := r.rates.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return translate(err)
}

func (r *ApartmentRepository) DeleteSeasonalRate(ctx context.Context, id domainapartment.ID, weekStart time.Time) error {
	if err := writable(ctx); err != nil {
		return err
	}
	res, err := r.rates.DeleteOne(ctx, bson.M{"apartment_id": string(id), "week_start": daterange.Normalize(weekStart)})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return domainapartment.ErrSeasonalRateNotFound
	}
	return nil
}

// LockForBooking writes the apartment's lock document in the running transaction. A
// second transaction touching the same lock fails with a write conflict until the
// first one ends.
func (r *ApartmentRepository) LockForBooking(ctx context.Context, id domainapartment.ID) error {
	return bumpLock(ctx, r.locks, string(id))
}

func bumpLock(ctx context.Context, locks *mongo.Collection, apartmentID string) error {
	_, err := locks.UpdateOne(ctx,
		bson.M{"_id": apartmentID},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.Update().SetUpsert(true),
	)
	return translate(err)
}

type BookingRepository struct {
	col   *mongo.Collection
	locks *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(colBookings), locks: db.Collection(colLocks)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, translate(err)
	}
	return doc.toAggregate(), nil
}

// Save stores b under its version guard. Confirmed bookings also take the apartment
// lock and are checked against the other confirmed stays, which is the only overlap
// guard Mongo offers.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	if err := writable(ctx); err != nil {
		return err
	}
	if b.Status == domainbooking.StatusConfirmed {
		if err := bumpLock(ctx, r.locks, string(b.ApartmentID)); err != nil {
			return err
		}
		clash, err := r.Overlapping(ctx, b.ApartmentID, b.Range, domainbooking.StatusConfirmed)
		if err != nil {
			return err
		}
		var ids []string
		for _, other := range clash {
			if other.ID != b.ID {
				ids = append(ids, string(other.ID))
			}
		}
		if len(ids) > 0 {
			return faults.Conflict(stayOverlapMsg, ids...)
		}
	}
	doc := newBookingDocument(b)
	doc.Version = b.Version + 1
	if b.Version == 0 {
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			return translate(err)
		}
		b.Version = doc.Version
		return nil
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": b.Version}, doc)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.ByID(ctx, b.ID); err != nil {
			return err
		}
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) List(ctx context.Context, filter domainbooking.ListFilter) ([]*domainbooking.Booking, error) {
	q := bson.M{}
	if filter.ApartmentID != "" {
		q["apartment_id"] = string(filter.ApartmentID)
	}
	if len(filter.Statuses) > 0 {
		q["status"] = bson.M{"$in": statusStrings(filter.Statuses)}
	}
	return r.find(ctx, q, bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
}

func (r *BookingRepository) Overlapping(ctx context.Context, apartmentID domainapartment.ID, dr daterange.DateRange, statuses ...domainbooking.Status) ([]*domainbooking.Booking, error) {
	q := bson.M{
		"apartment_id": string(apartmentID),
		"start_date":   bson.M{"$lt": dr.End.UTC()},
		"end_date":     bson.M{"$gt": dr.Start.UTC()},
	}
	if len(statuses) > 0 {
		q["status"] = bson.M{"$in": statusStrings(statuses)}
	}
	return r.find(ctx, q, bson.D{{Key: "_id", Value: 1}})
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, translate(err)
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err)
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func statusStrings(statuses []domainbooking.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

var (
	_ domainapartment.Repository = (*ApartmentRepository)(nil)
	_ domainbooking.Repository   = (*BookingRepository)(nil)
)
