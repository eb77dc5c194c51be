package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"staybook/internal/app/middleware"
	"staybook/internal/app/policies"
	domainauth "staybook/internal/domain/auth"
)

// IdempotencyStore keeps command outcomes as JSON with a TTL.
type IdempotencyStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *goredis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, k string) (middleware.IdempotencyRecord, bool, error) {
	raw, err := s.client.Get(ctx, key("idem", k)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, fmt.Errorf("redis: get idempotency: %w", err)
	}
	var rec middleware.IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return middleware.IdempotencyRecord{}, false, fmt.Errorf("redis: decode idempotency: %w", err)
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key("idem", rec.Key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: save idempotency: %w", err)
	}
	return nil
}

// SessionStore keeps operator sessions until they expire.
type SessionStore struct {
	client *goredis.Client
}

func NewSessionStore(client *goredis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	ttl := session.TTL(time.Now())
	if ttl <= 0 {
		return domainauth.ErrTTLInvalid
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key("session", string(session.Token)), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	raw, err := s.client.Get(ctx, key("session", string(token))).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domainauth.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get session: %w", err)
	}
	var session domainauth.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("redis: decode session: %w", err)
	}
	if session.Expired(time.Now()) {
		return nil, domainauth.ErrSessionNotFound
	}
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	return s.client.Del(ctx, key("session", string(token))).Err()
}

// Lease is a SET NX lock shared by every instance running the scheduler.
type Lease struct {
	client *goredis.Client
	holder string
}

func NewLease(client *goredis.Client, holder string) *Lease {
	return &Lease{client: client, holder: holder}
}

func (l *Lease) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key("lease", name), l.holder, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire lease %s: %w", name, err)
	}
	return ok, nil
}

var (
	_ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
	_ domainauth.SessionStore     = (*SessionStore)(nil)
	_ policies.Lease              = (*Lease)(nil)
)
