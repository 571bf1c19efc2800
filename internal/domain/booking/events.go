package booking

import (
	"time"

	"chakastays/internal/domain/properties"
)

type BookingCreated struct {
	BookingID  BookingID             `json:"booking_id"`
	PropertyID properties.PropertyID `json:"property_id"`
	GuestID    string                `json:"guest_id"`
	CheckIn    time.Time             `json:"check_in"`
	CheckOut   time.Time             `json:"check_out"`
	Guests     int                   `json:"guests"`
	Total      string                `json:"total"`
	Currency   string                `json:"currency"`
	At         time.Time             `json:"at"`
}

func (e BookingCreated) EventName() string     { return "booking.created" }
func (e BookingCreated) AggregateID() string   { return string(e.BookingID) }
func (e BookingCreated) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID  BookingID             `json:"booking_id"`
	PropertyID properties.PropertyID `json:"property_id"`
	GuestID    string                `json:"guest_id"`
	Reason     string                `json:"reason"`
	At         time.Time             `json:"at"`
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }
