package dto

import (
	"time"

	domainavailability "chakastays/internal/domain/availability"
	domainbooking "chakastays/internal/domain/booking"
	domainproperties "chakastays/internal/domain/properties"
)

type PropertySnapshot struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	City         string `json:"city"`
	Country      string `json:"country"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

type Booking struct {
	ID           string           `json:"id"`
	Property     PropertySnapshot `json:"property"`
	GuestID      string           `json:"guest_id"`
	CheckIn      time.Time        `json:"check_in"`
	CheckOut     time.Time        `json:"check_out"`
	Nights       int              `json:"nights"`
	Guests       int              `json:"guests"`
	Status       string           `json:"status"`
	Total        Money            `json:"total_price"`
	CancelReason string           `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

// BookingCheck is the pre-flight verdict shown before a booking is submitted.
type BookingCheck struct {
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
	Nights int    `json:"nights,omitempty"`
	Total  *Money `json:"total_price,omitempty"`
}

type DateInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type AvailabilityEntry struct {
	DateInterval
	Source string `json:"source"`
}

// Availability lists the disabled intervals for a calendar widget.
type Availability struct {
	PropertyID string              `json:"property_id"`
	Today      time.Time           `json:"today"`
	Disabled   []DateInterval      `json:"disabled"`
	Entries    []AvailabilityEntry `json:"entries"`
}

type BlockedDate struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func MapBooking(b *domainbooking.Booking, p *domainproperties.Property) Booking {
	snapshot := PropertySnapshot{ID: string(b.PropertyID)}
	if p != nil {
		snapshot.Title = p.Title
		snapshot.City = p.Location.City
		snapshot.Country = p.Location.Country
		if len(p.Images) > 0 {
			snapshot.ThumbnailURL = p.Images[0]
		}
	}
	return Booking{
		ID:           string(b.ID),
		Property:     snapshot,
		GuestID:      b.GuestID,
		CheckIn:      b.Range.Start,
		CheckOut:     b.Range.End,
		Nights:       b.Range.Nights(),
		Guests:       b.Guests,
		Status:       string(b.Status),
		Total:        MapMoney(b.Total),
		CancelReason: b.CancelReason,
		CreatedAt:    b.CreatedAt,
	}
}

func MapAvailability(propertyID domainproperties.PropertyID, today time.Time, idx *domainavailability.Index) Availability {
	out := Availability{
		PropertyID: string(propertyID),
		Today:      today,
		Disabled:   []DateInterval{},
		Entries:    []AvailabilityEntry{},
	}
	for _, r := range idx.DisabledMatchers() {
		out.Disabled = append(out.Disabled, DateInterval{Start: r.Start, End: r.End})
	}
	for _, e := range idx.Entries() {
		out.Entries = append(out.Entries, AvailabilityEntry{
			DateInterval: DateInterval{Start: e.Range.Start, End: e.Range.End},
			Source:       string(e.Source),
		})
	}
	return out
}

func MapBlockedDate(b *domainbooking.BlockedDate) BlockedDate {
	return BlockedDate{
		ID:         string(b.ID),
		PropertyID: string(b.PropertyID),
		Start:      b.Range.Start,
		End:        b.Range.End,
		Reason:     b.Reason,
		CreatedAt:  b.CreatedAt,
	}
}
