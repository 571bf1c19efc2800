package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chakastays/internal/app/dataservice"
	domainbooking "chakastays/internal/domain/booking"
	domainproperties "chakastays/internal/domain/properties"
	domainuser "chakastays/internal/domain/user"
)

type procedures struct{ s *Store }

func (p procedures) CreateBooking(ctx context.Context, actor dataservice.Actor, b *domainbooking.Booking) error {
	if b == nil {
		return domainbooking.ErrPropertyMissing
	}
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if actor.UserID == "" || actor.UserID != b.GuestID {
		return dataservice.ErrForbidden
	}
	if _, err := s.activeUser(ctx, actor); err != nil {
		return err
	}
	property, ok := s.properties[b.PropertyID]
	if !ok {
		return dataservice.NotFound(domainproperties.ErrNotFound)
	}
	if property.Banned {
		return dataservice.ErrPropertyBanned
	}
	if b.Guests > property.Capacity.MaxGuests {
		return fmt.Errorf("%w: guests exceed capacity", dataservice.ErrConflict)
	}
	if _, exists := s.bookings[b.ID]; exists {
		return fmt.Errorf("%w: booking %s exists", dataservice.ErrConflict, b.ID)
	}
	for _, other := range s.bookings {
		if other.PropertyID == b.PropertyID && other.Active() && other.Range.Overlaps(b.Range) {
			return dataservice.ErrDatesTaken
		}
	}
	for _, block := range s.blocks {
		if block.PropertyID == b.PropertyID && block.Range.Overlaps(b.Range) {
			return dataservice.ErrDatesTaken
		}
	}
	b.Version = 1
	s.bookings[b.ID] = b.Clone()
	return nil
}

func (p procedures) CancelBooking(ctx context.Context, actor dataservice.Actor, id domainbooking.BookingID, reason string, now time.Time) (*domainbooking.Booking, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.activeUser(ctx, actor)
	if err != nil {
		return nil, err
	}
	stored, ok := s.bookings[id]
	if !ok {
		return nil, dataservice.NotFound(domainbooking.ErrBookingNotFound)
	}
	allowed := stored.GuestID == actor.UserID || u.IsAdmin()
	if prop, ok := s.properties[stored.PropertyID]; ok && prop.OwnedBy(domainproperties.HostID(actor.UserID)) {
		allowed = true
	}
	if !allowed {
		return nil, dataservice.ErrForbidden
	}
	b := stored.Clone()
	if err := b.Cancel(reason, now); err != nil {
		return nil, fmt.Errorf("%w: %w", dataservice.ErrConflict, err)
	}
	b.Version++
	s.bookings[id] = b.Clone()
	return b, nil
}

func (p procedures) BanProperty(ctx context.Context, actor dataservice.Actor, id domainproperties.PropertyID, reason string, now time.Time) (*domainproperties.Property, error) {
	return p.moderate(ctx, actor, id, func(prop *domainproperties.Property) error {
		return prop.Ban(reason, now)
	})
}

func (p procedures) UnbanProperty(ctx context.Context, actor dataservice.Actor, id domainproperties.PropertyID, now time.Time) (*domainproperties.Property, error) {
	return p.moderate(ctx, actor, id, func(prop *domainproperties.Property) error {
		return prop.Unban(now)
	})
}

func (p procedures) moderate(ctx context.Context, actor dataservice.Actor, id domainproperties.PropertyID, apply func(*domainproperties.Property) error) (*domainproperties.Property, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	stored, ok := s.properties[id]
	if !ok {
		return nil, dataservice.NotFound(domainproperties.ErrNotFound)
	}
	prop := stored.Clone()
	if err := apply(prop); err != nil {
		if errors.Is(err, domainproperties.ErrAlreadyBanned) || errors.Is(err, domainproperties.ErrNotBanned) {
			return nil, fmt.Errorf("%w: %w", dataservice.ErrConflict, err)
		}
		return nil, err
	}
	prop.Version++
	s.properties[id] = prop.Clone()
	return prop, nil
}

func (p procedures) RemoveProperty(ctx context.Context, actor dataservice.Actor, id domainproperties.PropertyID, now time.Time) (*dataservice.RemovalResult, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	stored, ok := s.properties[id]
	if !ok {
		return nil, dataservice.NotFound(domainproperties.ErrNotFound)
	}
	result := &dataservice.RemovalResult{Property: stored.Clone()}
	for bid, b := range s.bookings {
		if b.PropertyID != id || !b.Active() {
			continue
		}
		cancelled := b.Clone()
		if err := cancelled.Cancel("property removed", now); err != nil {
			return nil, err
		}
		cancelled.Version++
		s.bookings[bid] = cancelled.Clone()
		result.Cancelled = append(result.Cancelled, cancelled)
	}
	for bid, b := range s.blocks {
		if b.PropertyID == id {
			delete(s.blocks, bid)
		}
	}
	for key := range s.favorites {
		if key.property == id {
			delete(s.favorites, key)
		}
	}
	delete(s.properties, id)
	result.Property.Remove(now)
	return result, nil
}

// activeUser expects s.mu to be held. Roles come from the store, never from the caller.
func (s *Store) activeUser(ctx context.Context, actor dataservice.Actor) (*domainuser.User, error) {
	if actor.UserID == "" {
		return nil, dataservice.ErrForbidden
	}
	u, err := s.users.ByID(ctx, domainuser.ID(actor.UserID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dataservice.ErrForbidden, err)
	}
	if u.Blocked {
		return nil, dataservice.ErrForbidden
	}
	return u, nil
}

func (s *Store) requireAdmin(ctx context.Context, actor dataservice.Actor) error {
	u, err := s.activeUser(ctx, actor)
	if err != nil {
		return err
	}
	if !u.IsAdmin() {
		return dataservice.ErrForbidden
	}
	return nil
}

var _ dataservice.Procedures = procedures{}
