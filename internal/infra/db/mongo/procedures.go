package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"chakastays/internal/app/dataservice"
	domainbooking "chakastays/internal/domain/booking"
	domainproperties "chakastays/internal/domain/properties"
)

type procedures struct{ s *Service }

// CreateBooking re-checks the guest, the property and the range inside one snapshot transaction.
func (p procedures) CreateBooking(ctx context.Context, actor dataservice.Actor, b *domainbooking.Booking) error {
	if b == nil {
		return domainbooking.ErrPropertyMissing
	}
	s := p.s
	return withTransaction(ctx, s.client.DB, func(sc mongo.SessionContext) error {
		if actor.UserID == "" || actor.UserID != b.GuestID {
			return dataservice.ErrForbidden
		}
		if _, err := s.activeUser(sc, actor); err != nil {
			return err
		}
		property, err := s.properties.ByID(sc, b.PropertyID)
		if err != nil {
			return err
		}
		if property.Banned {
			return dataservice.ErrPropertyBanned
		}
		if b.Guests > property.Capacity.MaxGuests {
			return fmt.Errorf("%w: guests exceed capacity", dataservice.ErrConflict)
		}
		taken, err := s.bookingOverlaps(sc, b.PropertyID, b.Range.Start, b.Range.End)
		if err != nil {
			return err
		}
		if !taken {
			if taken, err = s.blockOverlaps(sc, b.PropertyID, b.Range.Start, b.Range.End); err != nil {
				return err
			}
		}
		if taken {
			return dataservice.ErrDatesTaken
		}
		// Touching the property makes concurrent bookings for it write-conflict.
		if _, err := s.properties.col.UpdateByID(sc, string(b.PropertyID), bson.M{"$inc": bson.M{"booking_seq": 1}}); err != nil {
			return translate(err, domainproperties.ErrNotFound)
		}
		stored := b.Clone()
		stored.Version = 1
		doc, err := newBookingDocument(stored)
		if err != nil {
			return err
		}
		if _, err := s.bookings.col.InsertOne(sc, doc); err != nil {
			return translate(err, domainbooking.ErrBookingNotFound)
		}
		b.Version = 1
		return nil
	})
}

func (p procedures) CancelBooking(ctx context.Context, actor dataservice.Actor, id domainbooking.BookingID, reason string, now time.Time) (*domainbooking.Booking, error) {
	s := p.s
	var out *domainbooking.Booking
	err := withTransaction(ctx, s.client.DB, func(sc mongo.SessionContext) error {
		u, err := s.activeUser(sc, actor)
		if err != nil {
			return err
		}
		stored, err := s.bookings.ByID(sc, id)
		if err != nil {
			return err
		}
		allowed := stored.GuestID == actor.UserID || u.IsAdmin()
		if !allowed {
			prop, err := s.properties.ByID(sc, stored.PropertyID)
			if err != nil && !errors.Is(err, dataservice.ErrNotFound) {
				return err
			}
			allowed = prop != nil && prop.OwnedBy(domainproperties.HostID(actor.UserID))
		}
		if !allowed {
			return dataservice.ErrForbidden
		}
		b := stored.Clone()
		if err := b.Cancel(reason, now); err != nil {
			return fmt.Errorf("%w: %w", dataservice.ErrConflict, err)
		}
		expected := b.Version
		b.Version++
		if err := s.bookings.replace(sc, b, expected); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
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
	var out *domainproperties.Property
	err := withTransaction(ctx, s.client.DB, func(sc mongo.SessionContext) error {
		if err := s.requireAdmin(sc, actor); err != nil {
			return err
		}
		prop, err := s.properties.ByID(sc, id)
		if err != nil {
			return err
		}
		if err := apply(prop); err != nil {
			if errors.Is(err, domainproperties.ErrAlreadyBanned) || errors.Is(err, domainproperties.ErrNotBanned) {
				return fmt.Errorf("%w: %w", dataservice.ErrConflict, err)
			}
			return err
		}
		if err := s.properties.Save(sc, prop); err != nil {
			return err
		}
		out = prop
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p procedures) RemoveProperty(ctx context.Context, actor dataservice.Actor, id domainproperties.PropertyID, now time.Time) (*dataservice.RemovalResult, error) {
	s := p.s
	var result *dataservice.RemovalResult
	err := withTransaction(ctx, s.client.DB, func(sc mongo.SessionContext) error {
		if err := s.requireAdmin(sc, actor); err != nil {
			return err
		}
		prop, err := s.properties.ByID(sc, id)
		if err != nil {
			return err
		}
		active, err := s.bookings.ActiveByProperty(sc, id, time.Time{})
		if err != nil {
			return err
		}
		res := &dataservice.RemovalResult{Property: prop}
		for _, b := range active {
			if err := b.Cancel("property removed", now); err != nil {
				return err
			}
			expected := b.Version
			b.Version++
			if err := s.bookings.replace(sc, b, expected); err != nil {
				return err
			}
			res.Cancelled = append(res.Cancelled, b)
		}
		if _, err := s.blocks.col.DeleteMany(sc, bson.M{"property_id": string(id)}); err != nil {
			return translate(err, domainbooking.ErrBlockNotFound)
		}
		if _, err := s.favorites.col.DeleteMany(sc, bson.M{"property_id": string(id)}); err != nil {
			return translate(err, domainproperties.ErrNotFound)
		}
		if _, err := s.properties.col.DeleteOne(sc, bson.M{"_id": string(id)}); err != nil {
			return translate(err, domainproperties.ErrNotFound)
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Property.Remove(now)
	return result, nil
}

var _ dataservice.Procedures = procedures{}
