package booking

import (
	"context"
	"sort"

	"chakastays/internal/app/dto"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/queries"
	"chakastays/internal/app/remote"
	"chakastays/internal/app/session"
	domainbooking "chakastays/internal/domain/booking"
	domainproperties "chakastays/internal/domain/properties"
)

const ListGuestBookingsKey = "me.bookings.list"

type ListGuestBookingsQuery struct {
	Who session.Principal
}

func (q ListGuestBookingsQuery) Key() string { return ListGuestBookingsKey }

func (q ListGuestBookingsQuery) Caller() session.Principal { return q.Who }

type ListGuestBookingsHandler struct {
	support.Gateway
}

func (h *ListGuestBookingsHandler) Handle(ctx context.Context, q ListGuestBookingsQuery) (dto.BookingCollection, error) {
	bookings, err := remote.Call(ctx, h.Remote, "bookings.by_guest", func(ctx context.Context) ([]*domainbooking.Booking, error) {
		return h.Data.Bookings().ByGuest(ctx, q.Who.UserID)
	})
	if err != nil {
		return dto.BookingCollection{}, err
	}
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})

	props := make(map[domainproperties.PropertyID]*domainproperties.Property)
	items := make([]dto.Booking, 0, len(bookings))
	for _, b := range bookings {
		p, seen := props[b.PropertyID]
		if !seen {
			// A removed property still leaves the booking listed.
			p, err = h.Property(ctx, b.PropertyID)
			if err != nil && !support.IsNotFound(err) {
				return dto.BookingCollection{}, err
			}
			props[b.PropertyID] = p
		}
		items = append(items, dto.MapBooking(b, p))
	}
	return dto.BookingCollection{Items: items}, nil
}

var _ queries.Handler[ListGuestBookingsQuery, dto.BookingCollection] = (*ListGuestBookingsHandler)(nil)
