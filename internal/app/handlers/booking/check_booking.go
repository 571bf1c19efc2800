package booking

import (
	"context"
	"strings"
	"time"

	"chakastays/internal/app/apperr"
	"chakastays/internal/app/dto"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/queries"
	domainbooking "chakastays/internal/domain/booking"
	domainproperties "chakastays/internal/domain/properties"
)

const CheckBookingKey = "booking.check"

// CheckBookingQuery is the pre-flight check run while the guest picks dates.
type CheckBookingQuery struct {
	PropertyID string `json:"property_id" validate:"required"`
	CheckIn    time.Time
	CheckOut   time.Time
	Guests     int
}

func (q CheckBookingQuery) Key() string { return CheckBookingKey }

type CheckBookingHandler struct {
	support.Gateway
}

func (h *CheckBookingHandler) Handle(ctx context.Context, q CheckBookingQuery) (dto.BookingCheck, error) {
	property, err := h.Property(ctx, domainproperties.PropertyID(strings.TrimSpace(q.PropertyID)))
	if err != nil {
		return dto.BookingCheck{}, err
	}
	decision, err := evaluate(ctx, h.Gateway, property, q.CheckIn, q.CheckOut, q.Guests)
	if err != nil {
		return dto.BookingCheck{}, err
	}
	out := dto.BookingCheck{State: string(decision.State), Reason: string(decision.Reason)}
	if decision.Accepted() {
		total := dto.MapMoney(property.Quote(decision.Range))
		out.Nights = decision.Range.Nights()
		out.Total = &total
	}
	return out, nil
}

// evaluate runs the validator against a freshly built availability index.
// The index is skipped when the property is missing or banned since the verdict is already known.
func evaluate(ctx context.Context, g support.Gateway, property *domainproperties.Property, checkIn, checkOut time.Time, guests int) (domainbooking.Decision, error) {
	today := g.Today()
	req := domainbooking.Request{
		Property: property,
		Start:    checkIn,
		End:      checkOut,
		Guests:   guests,
		Today:    today,
	}
	if property == nil || property.Banned {
		return domainbooking.NewValidator().Evaluate(req, nil), nil
	}
	idx, err := g.Availability(ctx, property.ID, today)
	if err != nil {
		return domainbooking.Decision{}, err
	}
	return domainbooking.NewValidator().Evaluate(req, idx), nil
}

// rejection converts a rejected decision into a ValidationError carrying the
// reason and, when the dates parsed, the normalized range. Accepted decisions
// return nil.
func rejection(d domainbooking.Decision) error {
	if d.State != domainbooking.StateRejected {
		return nil
	}
	detail := ""
	if d.Range.Validate() == nil {
		detail = d.Range.String()
	}
	return apperr.Validation(string(d.Reason), detail)
}

var _ queries.Handler[CheckBookingQuery, dto.BookingCheck] = (*CheckBookingHandler)(nil)
