package middleware

import (
	"context"

	"staybook/internal/app/commands"
	"staybook/internal/app/queries"
)

type Validator interface {
	Validate(ctx context.Context, message any) error
}

// RejectedError names the bus message that failed validation. The validator's
// own error stays reachable through errors.As.
type RejectedError struct {
	Key string
	Err error
}

func (e *RejectedError) Error() string { return e.Key + ": " + e.Err.Error() }

func (e *RejectedError) Unwrap() error { return e.Err }

func Validation(v Validator) CommandMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := validateMessage(ctx, v, cmd.Key(), cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryValidation(v Validator) QueryMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := validateMessage(ctx, v, q.Key(), q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}

func validateMessage(ctx context.Context, v Validator, key string, message any) error {
	err := v.Validate(ctx, message)
	if err == nil {
		return nil
	}
	return &RejectedError{Key: key, Err: err}
}
