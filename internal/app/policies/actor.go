package policies

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrAuthenticationRequired = errors.New("policies: authentication required")
	ErrForbidden              = errors.New("policies: operator role required")
)

// Actor is the authenticated caller behind a command.
type Actor struct {
	ID    string
	Email string
	Roles []string
}

func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

type actorKey struct{}

func ContextWithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// OperatorOnly marks messages that only an operator may send.
type OperatorOnly interface {
	OperatorOnly()
}

// OperatorAuthorizer admits OperatorOnly messages when the context carries an actor with Role.
type OperatorAuthorizer struct {
	Role string
}

func (a OperatorAuthorizer) Authorize(ctx context.Context, message any) error {
	if _, ok := message.(OperatorOnly); !ok {
		return nil
	}
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ErrAuthenticationRequired
	}
	role := a.Role
	if role == "" {
		role = "admin"
	}
	if !actor.HasRole(role) {
		return ErrForbidden
	}
	return nil
}
