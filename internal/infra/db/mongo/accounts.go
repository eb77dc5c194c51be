package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"staybook/internal/app/policies"
	domainauth "staybook/internal/domain/auth"
	domainuser "staybook/internal/domain/user"
)

type operatorDocument struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	PasswordHash string    `bson:"password_hash"`
	Roles        []string  `bson:"roles"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type OperatorRepository struct {
	col *mongo.Collection
}

func NewOperatorRepository(c *Client) *OperatorRepository {
	return &OperatorRepository{col: c.DB.Collection(colOperators)}
}

func (r *OperatorRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.Operator, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *OperatorRepository) ByEmail(ctx context.Context, email string) (*domainuser.Operator, error) {
	return r.findOne(ctx, bson.M{"email": domainuser.NormalizeEmail(email)})
}

func (r *OperatorRepository) findOne(ctx context.Context, filter bson.M) (*domainuser.Operator, error) {
	var doc operatorDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainuser.ErrNotFound
		}
		return nil, translate(err)
	}
	roles := make([]domainuser.Role, 0, len(doc.Roles))
	for _, role := range doc.Roles {
		roles = append(roles, domainuser.Role(role))
	}
	return &domainuser.Operator{
		ID:           domainuser.ID(doc.ID),
		Email:        doc.Email,
		Name:         doc.Name,
		PasswordHash: doc.PasswordHash,
		Roles:        roles,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}, nil
}

func (r *OperatorRepository) Save(ctx context.Context, op *domainuser.Operator) error {
	roles := make([]string, 0, len(op.Roles))
	for _, role := range op.Roles {
		roles = append(roles, string(role))
	}
	doc := operatorDocument{
		ID:           string(op.ID),
		Email:        op.Email,
		Name:         op.Name,
		PasswordHash: op.PasswordHash,
		Roles:        roles,
		CreatedAt:    op.CreatedAt.UTC(),
		UpdatedAt:    op.UpdatedAt.UTC(),
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return translate(err)
}

type sessionDocument struct {
	Token     string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Roles     []string  `bson:"roles"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type SessionStore struct {
	col *mongo.Collection
}

func NewSessionStore(c *Client) *SessionStore {
	return &SessionStore{col: c.DB.Collection(colSessions)}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	roles := make([]string, 0, len(session.Roles))
	for _, role := range session.Roles {
		roles = append(roles, string(role))
	}
	_, err := s.col.InsertOne(ctx, sessionDocument{
		Token:     string(session.Token),
		UserID:    string(session.UserID),
		Roles:     roles,
		CreatedAt: session.CreatedAt.UTC(),
		ExpiresAt: session.ExpiresAt.UTC(),
	})
	return translate(err)
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	var doc sessionDocument
	err := s.col.FindOne(ctx, bson.M{"_id": string(token), "expires_at": bson.M{"$gt": time.Now().UTC()}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domainauth.ErrSessionNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	roles := make([]domainuser.Role, 0, len(doc.Roles))
	for _, role := range doc.Roles {
		roles = append(roles, domainuser.Role(role))
	}
	return &domainauth.Session{
		Token:     domainauth.Token(doc.Token),
		UserID:    domainuser.ID(doc.UserID),
		Roles:     roles,
		CreatedAt: doc.CreatedAt.UTC(),
		ExpiresAt: doc.ExpiresAt.UTC(),
	}, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": string(token)})
	return translate(err)
}

// Lease claims a named lock outside any running transaction: a duplicate key inside a
// Mongo transaction would abort it. A claimed day therefore stays claimed even when the
// sweep that took it fails.
type Lease struct {
	col    *mongo.Collection
	holder string
}

func NewLease(c *Client, holder string) *Lease {
	return &Lease{col: c.DB.Collection(colLeases), holder: holder}
}

func (l *Lease) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	lctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		lctx, cancel = context.WithDeadline(lctx, deadline)
		defer cancel()
	}
	now := time.Now().UTC()
	_, err := l.col.UpdateOne(lctx,
		bson.M{"_id": name, "expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"holder": l.holder, "expires_at": now.Add(ttl)}},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, translate(err)
	}
	return true, nil
}

var (
	_ domainuser.Repository   = (*OperatorRepository)(nil)
	_ domainauth.SessionStore = (*SessionStore)(nil)
	_ policies.Lease          = (*Lease)(nil)
)
