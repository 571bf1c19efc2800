// Package dataservice declares the typed contract with the backing data service.
// Reads and plain mutations go through the store interfaces; sensitive state
// transitions go through Procedures, which enforce authorization and invariants
// on the service side.
package dataservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"chakastays/internal/domain/auth"
	"chakastays/internal/domain/booking"
	"chakastays/internal/domain/favorites"
	"chakastays/internal/domain/notifications"
	"chakastays/internal/domain/properties"
	"chakastays/internal/domain/user"
)

var (
	ErrForbidden      = errors.New("dataservice: forbidden")
	ErrNotFound       = errors.New("dataservice: not found")
	ErrConflict       = errors.New("dataservice: conflict")
	ErrPropertyBanned = errors.New("dataservice: property is banned")
	ErrDatesTaken     = fmt.Errorf("%w: dates overlap an existing booking or block", ErrConflict)
	ErrUnavailable    = errors.New("dataservice: unavailable")
)

// NotFound tags a domain not-found error so callers can classify it.
func NotFound(err error) error {
	return fmt.Errorf("%w: %w", ErrNotFound, err)
}

// Actor is the caller identity passed to guarded operations. Roles are looked up by the service.
type Actor struct {
	UserID string
}

type BlockOverlapPolicy string

const (
	// BlockReject refuses blocks overlapping a non-cancelled booking.
	BlockReject BlockOverlapPolicy = "reject"
	// BlockAllow accepts any block.
	BlockAllow BlockOverlapPolicy = "allow"
)

func ParseBlockOverlapPolicy(value string) (BlockOverlapPolicy, error) {
	switch BlockOverlapPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", BlockReject:
		return BlockReject, nil
	case BlockAllow:
		return BlockAllow, nil
	default:
		return "", fmt.Errorf("dataservice: unknown block overlap policy %q", value)
	}
}

type Properties interface {
	properties.Repository
}

type Bookings interface {
	booking.Repository
	ByHost(ctx context.Context, hostID properties.HostID) ([]*booking.Booking, error)
}

type Blocks interface {
	booking.BlockRepository
	// Insert stores a block on a property the actor owns, applying policy against bookings.
	Insert(ctx context.Context, actor Actor, block *booking.BlockedDate, policy BlockOverlapPolicy) error
	// Delete removes a block from a property the actor owns.
	Delete(ctx context.Context, actor Actor, propertyID properties.PropertyID, id booking.BlockID) error
}

// RemovalResult reports what a property removal cascaded into.
type RemovalResult struct {
	Property  *properties.Property
	Cancelled []*booking.Booking
}

// Procedures are the guarded operations. Returned aggregates carry their pending events.
type Procedures interface {
	// CreateBooking verifies the property is not banned and the range is still free.
	CreateBooking(ctx context.Context, actor Actor, b *booking.Booking) error
	// CancelBooking is allowed for the guest, the property owner and admins.
	CancelBooking(ctx context.Context, actor Actor, id booking.BookingID, reason string, now time.Time) (*booking.Booking, error)
	BanProperty(ctx context.Context, actor Actor, id properties.PropertyID, reason string, now time.Time) (*properties.Property, error)
	UnbanProperty(ctx context.Context, actor Actor, id properties.PropertyID, now time.Time) (*properties.Property, error)
	// RemoveProperty cancels the property's bookings and deletes its blocks and favorites.
	RemoveProperty(ctx context.Context, actor Actor, id properties.PropertyID, now time.Time) (*RemovalResult, error)
}

type Service interface {
	Properties() Properties
	Bookings() Bookings
	Blocks() Blocks
	Notifications() notifications.Repository
	Favorites() favorites.Repository
	Users() user.Repository
	Sessions() auth.SessionStore
	Procedures() Procedures
	Ping(ctx context.Context) error
}

// Files stores uploads in named buckets and returns a public URL.
type Files interface {
	Upload(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error)
}
