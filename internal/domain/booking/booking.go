package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"chakastays/internal/domain/properties"
	"chakastays/internal/domain/shared/daterange"
	"chakastays/internal/domain/shared/events"
	"chakastays/internal/domain/shared/money"
)

var (
	ErrInvalidGuests   = errors.New("booking: guests count must be positive")
	ErrInvalidState    = errors.New("booking: invalid state transition")
	ErrBookingNotFound = errors.New("booking: not found")
	ErrGuestRequired   = errors.New("booking: guest id required")
	ErrPropertyMissing = errors.New("booking: property id required")
	ErrNegativeTotal   = errors.New("booking: total must not be negative")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type Booking struct {
	ID           BookingID
	PropertyID   properties.PropertyID
	GuestID      string
	Range        daterange.DateRange
	Guests       int
	Total        money.Money
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CancelledAt  time.Time
	CancelReason string
	Version      int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	// ActiveByProperty returns non-cancelled bookings whose check-out is on or after today.
	ActiveByProperty(ctx context.Context, propertyID properties.PropertyID, today time.Time) ([]*Booking, error)
	ByProperties(ctx context.Context, ids []properties.PropertyID) ([]*Booking, error)
	ByGuest(ctx context.Context, guestID string) ([]*Booking, error)
}

type CreateParams struct {
	ID         BookingID
	PropertyID properties.PropertyID
	GuestID    string
	Range      daterange.DateRange
	Guests     int
	Total      money.Money
	CreatedAt  time.Time
}

// NewBooking creates a confirmed booking. Bookings skip the pending state; payment is simulated.
func NewBooking(params CreateParams) (*Booking, error) {
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, ErrGuestRequired
	}
	if strings.TrimSpace(string(params.PropertyID)) == "" {
		return nil, ErrPropertyMissing
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if params.Total.Amount.IsNegative() {
		return nil, ErrNegativeTotal
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:         params.ID,
		PropertyID: params.PropertyID,
		GuestID:    params.GuestID,
		Range:      params.Range,
		Guests:     params.Guests,
		Total:      params.Total,
		Status:     StatusConfirmed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.Record(BookingCreated{
		BookingID:  b.ID,
		PropertyID: b.PropertyID,
		GuestID:    b.GuestID,
		CheckIn:    b.Range.Start,
		CheckOut:   b.Range.End,
		Guests:     b.Guests,
		Total:      b.Total.Amount.StringFixed(2),
		Currency:   b.Total.Currency,
		At:         now,
	})
	return b, nil
}

// Cancel closes the booking. Cancellation is terminal.
func (b *Booking) Cancel(reason string, now time.Time) error {
	if b.Status == StatusCancelled {
		return ErrInvalidState
	}
	now = now.UTC()
	b.Status = StatusCancelled
	b.CancelReason = strings.TrimSpace(reason)
	b.CancelledAt = now
	b.UpdatedAt = now
	b.Record(BookingCancelled{
		BookingID:  b.ID,
		PropertyID: b.PropertyID,
		GuestID:    b.GuestID,
		Reason:     b.CancelReason,
		At:         now,
	})
	return nil
}

// Active reports whether the booking still holds its dates.
func (b *Booking) Active() bool {
	return b.Status != StatusCancelled
}

func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	out := *b
	out.EventRecorder = events.EventRecorder{}
	return &out
}
