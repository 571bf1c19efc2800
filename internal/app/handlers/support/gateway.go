// Package support holds helpers shared by the application handlers.
package support

import (
	"context"
	"errors"
	"time"

	"chakastays/internal/app/apperr"
	"chakastays/internal/app/dataservice"
	"chakastays/internal/app/remote"
	domainavailability "chakastays/internal/domain/availability"
	domainbooking "chakastays/internal/domain/booking"
	domainproperties "chakastays/internal/domain/properties"
	"chakastays/internal/domain/shared/daterange"
)

var ErrNotOwner = errors.New("handlers: property belongs to another host")

const ReasonInvalidRequest = "invalid_request"

// Gateway is the data service as seen by handlers: every call goes through Remote.
type Gateway struct {
	Data   dataservice.Service
	Remote *remote.Caller
	Now    func() time.Time
}

func (g Gateway) Clock() time.Time {
	if g.Now != nil {
		return g.Now().UTC()
	}
	return time.Now().UTC()
}

// Today is the cutoff used for availability: midnight UTC of the current day.
func (g Gateway) Today() time.Time {
	return daterange.Day(g.Clock())
}

func (g Gateway) Property(ctx context.Context, id domainproperties.PropertyID) (*domainproperties.Property, error) {
	return remote.Call(ctx, g.Remote, "properties.by_id", func(ctx context.Context) (*domainproperties.Property, error) {
		return g.Data.Properties().ByID(ctx, id)
	})
}

// Availability fetches the property's bookings and blocks, applies the today cutoff
// and builds a fresh index. Nothing is cached between calls.
func (g Gateway) Availability(ctx context.Context, id domainproperties.PropertyID, today time.Time) (*domainavailability.Index, error) {
	bookings, err := remote.Call(ctx, g.Remote, "bookings.active_by_property", func(ctx context.Context) ([]*domainbooking.Booking, error) {
		return g.Data.Bookings().ActiveByProperty(ctx, id, today)
	})
	if err != nil {
		return nil, err
	}
	blocks, err := remote.Call(ctx, g.Remote, "blocks.active_by_property", func(ctx context.Context) ([]*domainbooking.BlockedDate, error) {
		return g.Data.Blocks().ActiveByProperty(ctx, id, today)
	})
	if err != nil {
		return nil, err
	}
	bookings, blocks = domainavailability.Prune(bookings, blocks, today)
	return domainavailability.NewIndex(bookings, blocks), nil
}

// Invalid turns a domain validation sentinel into a ValidationError.
func Invalid(err error) error {
	if err == nil || apperr.IsValidation(err) {
		return err
	}
	return apperr.Validation(ReasonInvalidRequest, err.Error())
}

// NotOwner is the local ownership check result. The data service checks again.
func NotOwner(op string) error {
	return &apperr.AuthorizationError{Op: op, Err: ErrNotOwner}
}

// IsNotFound reports a data-service not-found answer.
func IsNotFound(err error) bool {
	return apperr.RemoteCode(err) == apperr.CodeNotFound
}

// Hidden answers like a missing property, for banned properties viewed by strangers.
func Hidden(op string) error {
	return apperr.Remote(op, apperr.CodeNotFound, dataservice.ErrNotFound)
}
