package sqlstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staybook/internal/app/middleware"
	"staybook/internal/app/policies"
	domainauth "staybook/internal/domain/auth"
	domainuser "staybook/internal/domain/user"
)

type IdempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewIdempotencyStore(db *gorm.DB, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{db: db, ttl: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var m idempotencyModel
	err := s.db.WithContext(ctx).Where("key = ? AND expires_at > ?", key, time.Now().UTC()).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, translate(err)
	}
	return middleware.IdempotencyRecord{
		Key:        m.Key,
		Payload:    m.Payload,
		Error:      m.Error,
		ErrorKind:  m.ErrorKind,
		OccurredAt: m.OccurredAt.UTC(),
	}, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	m := idempotencyModel{
		Key:        rec.Key,
		Payload:    rec.Payload,
		Error:      rec.Error,
		ErrorKind:  rec.ErrorKind,
		OccurredAt: rec.OccurredAt,
		ExpiresAt:  rec.OccurredAt.Add(s.ttl),
	}
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error)
}

// Purge drops expired records.
func (s *IdempotencyStore) Purge(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", time.Now().UTC()).Delete(&idempotencyModel{})
	return res.RowsAffected, translate(res.Error)
}

type OperatorRepository struct {
	db *gorm.DB
}

func NewOperatorRepository(db *gorm.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

func (r *OperatorRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.Operator, error) {
	return r.first(ctx, "id = ?", string(id))
}

func (r *OperatorRepository) ByEmail(ctx context.Context, email string) (*domainuser.Operator, error) {
	return r.first(ctx, "email = ?", domainuser.NormalizeEmail(email))
}

func (r *OperatorRepository) first(ctx context.Context, query string, arg any) (*domainuser.Operator, error) {
	var m operatorModel
	err := r.db.WithContext(ctx).Where(query, arg).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainuser.ErrNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return m.toDomain(), nil
}

func (r *OperatorRepository) Save(ctx context.Context, op *domainuser.Operator) error {
	m := operatorFromDomain(op)
	return translate(r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error)
}

type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	m := sessionModel{
		Token:     string(session.Token),
		UserID:    string(session.UserID),
		Roles:     joinRoles(session.Roles),
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	var m sessionModel
	err := s.db.WithContext(ctx).Where("token = ? AND expires_at > ?", string(token), time.Now().UTC()).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainauth.ErrSessionNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return m.toDomain(), nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	return translate(s.db.WithContext(ctx).Where("token = ?", string(token)).Delete(&sessionModel{}).Error)
}

// Lease grants a named lock to one holder until it expires. An expired lease is taken
// over by the next caller. Inside a unit of work the lease is written in its transaction,
// so a rolled back sweep leaves the day unclaimed.
type Lease struct {
	store  *Store
	holder string
}

func (s *Store) Lease(holder string) *Lease {
	return &Lease{store: s, holder: holder}
}

func (l *Lease) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	db := l.store.db.WithContext(ctx)
	if u, ok := l.store.unitFrom(ctx); ok {
		w, err := u.writer(ctx)
		if err != nil {
			return false, err
		}
		db = w
	}
	now := time.Now().UTC()
	m := leaseModel{Name: name, Holder: l.holder, ExpiresAt: now.Add(ttl)}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"holder", "expires_at"}),
		Where:     clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "leases.expires_at <= ?", Vars: []any{now}}}},
	}).Create(&m)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

var (
	_ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
	_ domainuser.Repository       = (*OperatorRepository)(nil)
	_ domainauth.SessionStore     = (*SessionStore)(nil)
	_ policies.Lease              = (*Lease)(nil)
)
