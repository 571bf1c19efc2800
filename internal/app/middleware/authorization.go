package middleware

import (
	"context"
	"errors"

	"chakastays/internal/app/apperr"
	"chakastays/internal/app/commands"
	"chakastays/internal/app/queries"
	"chakastays/internal/app/session"
	"chakastays/internal/domain/user"
)

var (
	ErrAuthenticationRequired = errors.New("middleware: authentication required")
	ErrRoleRequired           = errors.New("middleware: role required")
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// Authenticated is implemented by messages that need a signed-in caller.
type Authenticated interface {
	Caller() session.Principal
}

// RoleGated is implemented by messages restricted to a role.
type RoleGated interface {
	Authenticated
	RequiredRole() user.Role
}

// RoleAuthorizer rejects early when the caller lacks the role a message asks for.
// It only saves a round trip; the data service repeats every check.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(ctx context.Context, message any) error {
	op := "unknown"
	if m, ok := message.(Message); ok {
		op = m.Key()
	}
	authn, ok := message.(Authenticated)
	if !ok {
		return nil
	}
	caller := authn.Caller()
	if !caller.Authenticated() {
		return &apperr.AuthorizationError{Op: op, Err: ErrAuthenticationRequired}
	}
	gated, ok := message.(RoleGated)
	if !ok || gated.RequiredRole() == "" {
		return nil
	}
	if !caller.HasRole(gated.RequiredRole()) {
		return &apperr.AuthorizationError{Op: op, Err: ErrRoleRequired}
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
