package booking

import (
	"context"
	"log/slog"
	"strings"

	"chakastays/internal/app/commands"
	"chakastays/internal/app/dto"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/outbox"
	"chakastays/internal/app/remote"
	"chakastays/internal/app/session"
	domainbooking "chakastays/internal/domain/booking"
)

const CancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	Who       session.Principal
	BookingID string `json:"booking_id" validate:"required"`
	Reason    string `json:"reason" validate:"max=500"`
}

func (c CancelBookingCommand) Key() string { return CancelBookingKey }

func (c CancelBookingCommand) Caller() session.Principal { return c.Who }

// CancelBookingHandler defers the who-may-cancel decision to the data service.
type CancelBookingHandler struct {
	support.Gateway
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.Booking, error) {
	id := domainbooking.BookingID(strings.TrimSpace(cmd.BookingID))
	booking, err := remote.Call(ctx, h.Remote, "procedures.cancel_booking", func(ctx context.Context) (*domainbooking.Booking, error) {
		return h.Data.Procedures().CancelBooking(ctx, cmd.Who.Actor(), id, cmd.Reason, h.Clock())
	})
	if err != nil {
		return nil, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking cancelled", "booking_id", booking.ID, "by", cmd.Who.UserID)
	}
	// The cancellation is committed at this point; a failed lookup only thins the response.
	property, err := h.Property(ctx, booking.PropertyID)
	if err != nil && !support.IsNotFound(err) && h.Logger != nil {
		h.Logger.Warn("property lookup after cancel failed", "booking_id", booking.ID, "error", err)
	}
	result := dto.MapBooking(booking, property)
	return &result, nil
}

var _ commands.Handler[CancelBookingCommand, *dto.Booking] = (*CancelBookingHandler)(nil)
