package availability

import (
	"context"
	"strings"

	"chakastays/internal/app/dto"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/queries"
	domainproperties "chakastays/internal/domain/properties"
)

const GetAvailabilityKey = "properties.availability"

type GetAvailabilityQuery struct {
	PropertyID string `json:"property_id" validate:"required"`
}

func (q GetAvailabilityQuery) Key() string { return GetAvailabilityKey }

// GetAvailabilityHandler returns the disabled intervals of a property from today on.
type GetAvailabilityHandler struct {
	support.Gateway
}

func (h *GetAvailabilityHandler) Handle(ctx context.Context, q GetAvailabilityQuery) (dto.Availability, error) {
	id := domainproperties.PropertyID(strings.TrimSpace(q.PropertyID))
	if _, err := h.Property(ctx, id); err != nil {
		return dto.Availability{}, err
	}
	today := h.Today()
	idx, err := h.Availability(ctx, id, today)
	if err != nil {
		return dto.Availability{}, err
	}
	return dto.MapAvailability(id, today, idx), nil
}

var _ queries.Handler[GetAvailabilityQuery, dto.Availability] = (*GetAvailabilityHandler)(nil)
