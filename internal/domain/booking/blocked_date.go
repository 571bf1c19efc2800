package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"chakastays/internal/domain/properties"
	"chakastays/internal/domain/shared/daterange"
)

var (
	ErrBlockNotFound  = errors.New("booking: blocked date not found")
	ErrBlockIDMissing = errors.New("booking: blocked date id required")
)

type BlockID string

// BlockedDate is a host-authored range during which the property cannot be booked.
type BlockedDate struct {
	ID         BlockID
	PropertyID properties.PropertyID
	Range      daterange.DateRange
	Reason     string
	CreatedAt  time.Time
}

type BlockRepository interface {
	ByID(ctx context.Context, id BlockID) (*BlockedDate, error)
	// ActiveByProperty returns blocks whose end is on or after today.
	ActiveByProperty(ctx context.Context, propertyID properties.PropertyID, today time.Time) ([]*BlockedDate, error)
}

func NewBlockedDate(id BlockID, propertyID properties.PropertyID, dr daterange.DateRange, reason string, now time.Time) (*BlockedDate, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, ErrBlockIDMissing
	}
	if strings.TrimSpace(string(propertyID)) == "" {
		return nil, ErrPropertyMissing
	}
	if err := dr.Validate(); err != nil {
		return nil, err
	}
	return &BlockedDate{
		ID:         id,
		PropertyID: propertyID,
		Range:      dr,
		Reason:     strings.TrimSpace(reason),
		CreatedAt:  now.UTC(),
	}, nil
}
