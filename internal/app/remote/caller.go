package remote

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"chakastays/internal/app/apperr"
	"chakastays/internal/app/dataservice"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxFailures = 5
)

// Caller bounds every data-service call with a timeout and a circuit breaker.
type Caller struct {
	Timeout time.Duration
	Breaker *gobreaker.CircuitBreaker
	Logger  *slog.Logger
}

type Options struct {
	Name        string
	Timeout     time.Duration
	MaxFailures uint32
	OpenFor     time.Duration
	Logger      *slog.Logger
}

func NewCaller(opts Options) *Caller {
	name := opts.Name
	if name == "" {
		name = "dataservice"
	}
	maxFailures := opts.MaxFailures
	if maxFailures == 0 {
		maxFailures = DefaultMaxFailures
	}
	logger := opts.Logger
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: opts.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	})
	return &Caller{Timeout: opts.Timeout, Breaker: breaker, Logger: logger}
}

func (c *Caller) budget() time.Duration {
	if c == nil || c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

type outcome[T any] struct {
	value T
	err   error
}

// Call runs fn under the caller's budget. The call is raced in its own goroutine
// so an adapter ignoring ctx cannot hold the request past the deadline.
func Call[T any](ctx context.Context, c *Caller, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	budget := c.budget()
	callCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		v, err := execute(callCtx, c, fn)
		done <- outcome[T]{value: v, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return zero, c.classify(ctx, op, budget, res.err)
		}
		return res.value, nil
	case <-callCtx.Done():
		return zero, c.classify(ctx, op, budget, callCtx.Err())
	}
}

// Do is Call for operations without a result.
func Do(ctx context.Context, c *Caller, op string, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, c, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func execute[T any](ctx context.Context, c *Caller, fn func(context.Context) (T, error)) (T, error) {
	if c == nil || c.Breaker == nil {
		return fn(ctx)
	}
	var zero T
	raw, err := c.Breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	if raw == nil {
		return zero, nil
	}
	return raw.(T), nil
}

func (c *Caller) classify(parent context.Context, op string, budget time.Duration, err error) error {
	var (
		validation *apperr.ValidationError
		remoteErr  *apperr.RemoteError
		timeout    *apperr.TimeoutError
		authz      *apperr.AuthorizationError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &remoteErr), errors.As(err, &timeout), errors.As(err, &authz):
		return err
	case errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil:
		c.log(op, err)
		return &apperr.TimeoutError{Op: op, Budget: budget}
	case errors.Is(err, context.Canceled), parent.Err() != nil:
		return parent.Err()
	case errors.Is(err, dataservice.ErrForbidden):
		return &apperr.AuthorizationError{Op: op, Err: err}
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return apperr.Remote(op, apperr.CodeUnavailable, err)
	case errors.Is(err, dataservice.ErrNotFound):
		return apperr.Remote(op, apperr.CodeNotFound, err)
	case errors.Is(err, dataservice.ErrPropertyBanned):
		return apperr.Remote(op, apperr.CodeBanned, err)
	case errors.Is(err, dataservice.ErrConflict):
		return apperr.Remote(op, apperr.CodeConflict, err)
	case errors.Is(err, dataservice.ErrUnavailable):
		c.log(op, err)
		return apperr.Remote(op, apperr.CodeUnavailable, err)
	default:
		c.log(op, err)
		return apperr.Remote(op, apperr.CodeInternal, err)
	}
}

func (c *Caller) log(op string, err error) {
	if c != nil && c.Logger != nil {
		c.Logger.Warn("remote call failed", "op", op, "error", err)
	}
}

// countsAsSuccess keeps business rejections from tripping the breaker.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	return errors.Is(err, dataservice.ErrForbidden) ||
		errors.Is(err, dataservice.ErrNotFound) ||
		errors.Is(err, dataservice.ErrConflict) ||
		errors.Is(err, dataservice.ErrPropertyBanned)
}
