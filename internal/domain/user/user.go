package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrInvalidRole         = errors.New("user: invalid role")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

type Role string

// RoleAdmin is held by the operators who run the booking desk.
const RoleAdmin Role = "admin"

// Operator is an account allowed into the admin surface.
type Operator struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Operator, error)
	ByEmail(ctx context.Context, email string) (*Operator, error)
	Save(ctx context.Context, op *Operator) error
}

type CreateParams struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
}

func NewOperator(params CreateParams) (*Operator, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	roles := make([]Role, 0, len(params.Roles))
	for _, r := range params.Roles {
		r = Role(strings.ToLower(strings.TrimSpace(string(r))))
		if r == "" {
			return nil, ErrInvalidRole
		}
		roles = append(roles, r)
	}
	if len(roles) == 0 {
		roles = []Role{RoleAdmin}
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		name = email
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	return &Operator{
		ID:           ID(id),
		Email:        email,
		Name:         name,
		PasswordHash: params.PasswordHash,
		Roles:        roles,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}

func (o *Operator) HasRole(role Role) bool {
	for _, r := range o.Roles {
		if strings.EqualFold(string(r), string(role)) {
			return true
		}
	}
	return false
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
