package middleware

import (
	"context"
	"strings"

	"staybook/internal/app/commands"
	"staybook/internal/app/queries"
	domainbooking "staybook/internal/domain/booking"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// Actor is implemented by messages issued on behalf of an authenticated user.
type Actor interface {
	ActorID() string
}

// RequireActor rejects actor-bound messages that carry no actor identity.
// Ownership checks stay with the handlers, which know the aggregate.
type RequireActor struct{}

func (RequireActor) Authorize(_ context.Context, message any) error {
	actor, ok := message.(Actor)
	if !ok {
		return nil
	}
	if strings.TrimSpace(actor.ActorID()) == "" {
		return domainbooking.ErrUnauthorized
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
