package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/remote"
	domainbooking "chakastays/internal/domain/booking"
	domainnotifications "chakastays/internal/domain/notifications"
	domainproperties "chakastays/internal/domain/properties"
)

// Trigger turns published domain events into notification records.
type Trigger struct {
	support.Gateway
	IDs    func() string
	Logger *slog.Logger
}

// HandleEvent creates the notifications for one event. Unknown event names are ignored.
func (t *Trigger) HandleEvent(ctx context.Context, name string, payload []byte) error {
	var (
		items []domainnotifications.CreateParams
		err   error
	)
	switch name {
	case "booking.created":
		items, err = t.bookingCreated(ctx, payload)
	case "booking.cancelled":
		items, err = t.bookingCancelled(ctx, payload)
	case "property.banned":
		items, err = t.propertyBanned(payload)
	case "property.unbanned":
		items, err = t.propertyUnbanned(payload)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("notifications: %s: %w", name, err)
	}

	var errs []error
	for _, params := range items {
		params.ID = domainnotifications.NotificationID(t.nextID())
		params.Now = t.Clock()
		n, err := domainnotifications.New(params)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := remote.Do(ctx, t.Remote, "notifications.insert", func(ctx context.Context) error {
			return t.Data.Notifications().Insert(ctx, n)
		}); err != nil {
			errs = append(errs, err)
			continue
		}
		if t.Logger != nil {
			t.Logger.Debug("notification created", "event", name, "user_id", n.UserID, "type", n.Type)
		}
	}
	return errors.Join(errs...)
}

func (t *Trigger) bookingCreated(ctx context.Context, payload []byte) ([]domainnotifications.CreateParams, error) {
	var ev domainbooking.BookingCreated
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	property, err := t.Property(ctx, ev.PropertyID)
	if err != nil {
		return nil, err
	}
	dates := ev.CheckIn.Format("Jan 2") + " - " + ev.CheckOut.Format("Jan 2, 2006")
	return []domainnotifications.CreateParams{
		{
			UserID:  ev.GuestID,
			Type:    domainnotifications.TypeBookingCreated,
			Title:   "Booking confirmed",
			Message: fmt.Sprintf("Your stay at %s for %s is confirmed.", property.Title, dates),
			Link:    "/me/bookings",
		},
		{
			UserID:  string(property.Host),
			Type:    domainnotifications.TypeBookingReceived,
			Title:   "New booking",
			Message: fmt.Sprintf("%s was booked for %s (%d guests, %s %s).", property.Title, dates, ev.Guests, ev.Total, ev.Currency),
			Link:    "/host/dashboard",
		},
	}, nil
}

func (t *Trigger) bookingCancelled(ctx context.Context, payload []byte) ([]domainnotifications.CreateParams, error) {
	var ev domainbooking.BookingCancelled
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	out := []domainnotifications.CreateParams{{
		UserID:  ev.GuestID,
		Type:    domainnotifications.TypeBookingCancelled,
		Title:   "Booking cancelled",
		Message: cancelMessage("Your booking was cancelled.", ev.Reason),
		Link:    "/me/bookings",
	}}
	property, err := t.Property(ctx, ev.PropertyID)
	switch {
	case err == nil:
		out = append(out, domainnotifications.CreateParams{
			UserID:  string(property.Host),
			Type:    domainnotifications.TypeBookingCancelled,
			Title:   "Booking cancelled",
			Message: cancelMessage("A booking for "+property.Title+" was cancelled.", ev.Reason),
			Link:    "/host/dashboard",
		})
	case support.IsNotFound(err):
		// Removed properties cancel their bookings; only the guest is told.
	default:
		return nil, err
	}
	return out, nil
}

func (t *Trigger) propertyBanned(payload []byte) ([]domainnotifications.CreateParams, error) {
	var ev domainproperties.PropertyBanned
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	msg := "Your property was hidden from search by an administrator."
	if ev.Reason != "" {
		msg += " Reason: " + ev.Reason
	}
	return []domainnotifications.CreateParams{{
		UserID:  string(ev.HostID),
		Type:    domainnotifications.TypePropertyBanned,
		Title:   "Property banned",
		Message: msg,
		Link:    "/host/properties/" + string(ev.PropertyID),
	}}, nil
}

func (t *Trigger) propertyUnbanned(payload []byte) ([]domainnotifications.CreateParams, error) {
	var ev domainproperties.PropertyUnbanned
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return []domainnotifications.CreateParams{{
		UserID:  string(ev.HostID),
		Type:    domainnotifications.TypePropertyUnbanned,
		Title:   "Property restored",
		Message: "Your property is visible in search again.",
		Link:    "/host/properties/" + string(ev.PropertyID),
	}}, nil
}

func (t *Trigger) nextID() string {
	if t.IDs != nil {
		return t.IDs()
	}
	return uuid.NewString()
}

func cancelMessage(base, reason string) string {
	if reason == "" {
		return base
	}
	return base + " Reason: " + reason
}
