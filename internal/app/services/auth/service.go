package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"staybook/internal/app/policies"
	domainauth "staybook/internal/domain/auth"
	domainuser "staybook/internal/domain/user"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenGenerator interface {
	NewToken() (string, error)
}

// Service signs operators in and resolves their session tokens.
type Service struct {
	Operators  domainuser.Repository
	Sessions   domainauth.SessionStore
	Passwords  PasswordHasher
	Tokens     TokenGenerator
	SessionTTL time.Duration
	Logger     *slog.Logger
}

type LoginParams struct {
	Email    string
	Password string
}

type LoginResult struct {
	Operator  *domainuser.Operator
	Token     string
	ExpiresAt time.Time
}

// EnsureOperator creates the operator account if it does not exist yet, or refreshes its
// password when the configured one no longer matches.
func (s *Service) EnsureOperator(ctx context.Context, email, name, password string) (*domainuser.Operator, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(password) < 8 {
		return nil, ErrPasswordTooShort
	}
	existing, err := s.Operators.ByEmail(ctx, domainuser.NormalizeEmail(email))
	switch {
	case err == nil:
		if s.Passwords.Compare(existing.PasswordHash, password) == nil {
			return existing, nil
		}
		hash, err := s.Passwords.Hash(password)
		if err != nil {
			return nil, err
		}
		existing.PasswordHash = hash
		existing.UpdatedAt = time.Now().UTC()
		if err := s.Operators.Save(ctx, existing); err != nil {
			return nil, err
		}
		s.log().Info("operator password rotated", "operator_id", existing.ID)
		return existing, nil
	case !errors.Is(err, domainuser.ErrNotFound):
		return nil, err
	}

	hash, err := s.Passwords.Hash(password)
	if err != nil {
		return nil, err
	}
	op, err := domainuser.NewOperator(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Roles:        []domainuser.Role{domainuser.RoleAdmin},
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Operators.Save(ctx, op); err != nil {
		return nil, err
	}
	s.log().Info("operator seeded", "operator_id", op.ID, "email", op.Email)
	return op, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*LoginResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	op, err := s.Operators.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(op.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	session, err := s.issueSession(ctx, op)
	if err != nil {
		return nil, err
	}
	s.log().Info("operator authenticated", "operator_id", op.ID)
	return &LoginResult{Operator: op, Token: string(session.Token), ExpiresAt: session.ExpiresAt}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.Sessions.Delete(ctx, domainauth.Token(token))
}

// Resolve turns a bearer token into the actor the command pipeline authorizes against.
func (s *Service) Resolve(ctx context.Context, token string) (policies.Actor, *domainuser.Operator, error) {
	if err := s.ensureDependencies(); err != nil {
		return policies.Actor{}, nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return policies.Actor{}, nil, domainauth.ErrTokenRequired
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return policies.Actor{}, nil, err
	}
	if session.Expired(time.Now()) {
		_ = s.Sessions.Delete(ctx, session.Token)
		return policies.Actor{}, nil, domainauth.ErrSessionNotFound
	}
	op, err := s.Operators.ByID(ctx, session.UserID)
	if err != nil {
		_ = s.Sessions.Delete(ctx, session.Token)
		if errors.Is(err, domainuser.ErrNotFound) {
			return policies.Actor{}, nil, domainauth.ErrSessionNotFound
		}
		return policies.Actor{}, nil, err
	}
	roles := make([]string, 0, len(op.Roles))
	for _, r := range op.Roles {
		roles = append(roles, string(r))
	}
	return policies.Actor{ID: string(op.ID), Email: op.Email, Roles: roles}, op, nil
}

func (s *Service) issueSession(ctx context.Context, op *domainuser.Operator) (*domainauth.Session, error) {
	token, err := s.Tokens.NewToken()
	if err != nil {
		return nil, err
	}
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:  domainauth.Token(token),
		UserID: op.ID,
		Roles:  append([]domainuser.Role(nil), op.Roles...),
		TTL:    s.sessionTTL(),
		Now:    time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 12 * time.Hour
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Operators == nil:
		return errors.New("auth: operator repository required")
	case s.Sessions == nil:
		return errors.New("auth: session store required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token generator required")
	default:
		return nil
	}
}
