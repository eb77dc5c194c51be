package memory

import (
	"context"
	"sync"
	"time"

	domainauth "staybook/internal/domain/auth"
	domainuser "staybook/internal/domain/user"
)

type OperatorRepository struct {
	mu    sync.RWMutex
	items map[domainuser.ID]domainuser.Operator
}

func NewOperatorRepository() *OperatorRepository {
	return &OperatorRepository{items: make(map[domainuser.ID]domainuser.Operator)}
}

func (r *OperatorRepository) ByID(_ context.Context, id domainuser.ID) (*domainuser.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.items[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return &op, nil
}

func (r *OperatorRepository) ByEmail(_ context.Context, email string) (*domainuser.Operator, error) {
	email = domainuser.NormalizeEmail(email)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, op := range r.items {
		if op.Email == email {
			return &op, nil
		}
	}
	return nil, domainuser.ErrNotFound
}

func (r *OperatorRepository) Save(_ context.Context, op *domainuser.Operator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *op
	clone.Roles = append([]domainuser.Role(nil), op.Roles...)
	r.items[op.ID] = clone
	return nil
}

type SessionStore struct {
	mu    sync.Mutex
	items map[domainauth.Token]domainauth.Session
	now   func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{items: make(map[domainauth.Token]domainauth.Session), now: time.Now}
}

func (s *SessionStore) Save(_ context.Context, session *domainauth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[session.Token] = *session
	return nil
}

func (s *SessionStore) Get(_ context.Context, token domainauth.Token) (*domainauth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.items[token]
	if !ok || session.Expired(s.now()) {
		delete(s.items, token)
		return nil, domainauth.ErrSessionNotFound
	}
	return &session, nil
}

func (s *SessionStore) Delete(_ context.Context, token domainauth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, token)
	return nil
}

// Lease is a process-local stand-in for the Redis sweep lease.
type Lease struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

func NewLease() *Lease {
	return &Lease{expires: make(map[string]time.Time)}
}

func (l *Lease) Acquire(_ context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if until, ok := l.expires[name]; ok && until.After(now) {
		return false, nil
	}
	l.expires[name] = now.Add(ttl)
	return true, nil
}

var (
	_ domainuser.Repository   = (*OperatorRepository)(nil)
	_ domainauth.SessionStore = (*SessionStore)(nil)
)
