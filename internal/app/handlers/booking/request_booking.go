package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"chakastays/internal/app/commands"
	"chakastays/internal/app/dto"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/middleware"
	"chakastays/internal/app/outbox"
	"chakastays/internal/app/remote"
	"chakastays/internal/app/session"
	domainbooking "chakastays/internal/domain/booking"
	domainproperties "chakastays/internal/domain/properties"
)

const RequestBookingKey = "booking.request"

type RequestBookingCommand struct {
	Who             session.Principal
	CommandID       string
	PropertyID      string `json:"property_id" validate:"required"`
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return RequestBookingKey }

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &dto.Booking{} }

func (c RequestBookingCommand) Caller() session.Principal { return c.Who }

// RequestBookingHandler validates locally, then asks the data service to create the booking.
// A local accept is advisory; the procedure's rejection is the final answer.
type RequestBookingHandler struct {
	support.Gateway
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*dto.Booking, error) {
	property, err := h.Property(ctx, domainproperties.PropertyID(strings.TrimSpace(cmd.PropertyID)))
	if err != nil {
		return nil, err
	}
	decision, err := evaluate(ctx, h.Gateway, property, cmd.CheckIn, cmd.CheckOut, cmd.Guests)
	if err != nil {
		return nil, err
	}
	if !decision.Accepted() {
		if h.Logger != nil {
			h.Logger.Debug("booking rejected locally", "property_id", property.ID, "reason", decision.Reason)
		}
		return nil, rejection(decision)
	}

	id := strings.TrimSpace(cmd.CommandID)
	if id == "" {
		id = uuid.NewString()
	}
	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         domainbooking.BookingID(id),
		PropertyID: property.ID,
		GuestID:    cmd.Who.UserID,
		Range:      decision.Range,
		Guests:     cmd.Guests,
		Total:      property.Quote(decision.Range),
		CreatedAt:  h.Clock(),
	})
	if err != nil {
		return nil, support.Invalid(err)
	}

	if err := remote.Do(ctx, h.Remote, "procedures.create_booking", func(ctx context.Context) error {
		return h.Data.Procedures().CreateBooking(ctx, cmd.Who.Actor(), booking)
	}); err != nil {
		if h.Logger != nil {
			h.Logger.Info("booking rejected by data service", "property_id", property.ID, "error", err)
		}
		return nil, err
	}

	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking created", "booking_id", booking.ID, "property_id", property.ID, "guest_id", booking.GuestID)
	}
	result := dto.MapBooking(booking, property)
	return &result, nil
}

var _ commands.Handler[RequestBookingCommand, *dto.Booking] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*RequestBookingCommand)(nil)
