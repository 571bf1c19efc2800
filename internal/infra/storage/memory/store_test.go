package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chakastays/internal/app/dataservice"
	domainbooking "chakastays/internal/domain/booking"
	domainfavorites "chakastays/internal/domain/favorites"
	domainnotifications "chakastays/internal/domain/notifications"
	domainproperties "chakastays/internal/domain/properties"
	"chakastays/internal/domain/shared/daterange"
	"chakastays/internal/domain/shared/money"
	domainuser "chakastays/internal/domain/user"
)

var now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, s *Store, id string, roles ...domainuser.Role) {
	t.Helper()
	u, err := domainuser.NewUser(domainuser.CreateParams{
		ID: domainuser.ID(id), Email: id + "@example.com", Name: id, PasswordHash: "x", Roles: roles, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	if err := s.Users().Save(context.Background(), u); err != nil {
		t.Fatalf("save user: %v", err)
	}
}

func seedProperty(t *testing.T, s *Store, id, host string) {
	t.Helper()
	p, err := domainproperties.NewProperty(domainproperties.CreateParams{
		ID: domainproperties.PropertyID(id), Host: domainproperties.HostID(host), Title: "Flat " + id,
		Location: domainproperties.Location{City: "Lisbon", Country: "PT"}, PricePerNight: money.Must("100", "USD"),
		Capacity: domainproperties.Capacity{MaxGuests: 4}, Now: now,
	})
	if err != nil {
		t.Fatalf("NewProperty: %v", err)
	}
	if err := s.Properties().Save(context.Background(), p); err != nil {
		t.Fatalf("save property: %v", err)
	}
}

func newBooking(t *testing.T, id, property, guest, start, end string) *domainbooking.Booking {
	t.Helper()
	dr, err := daterange.Parse(start, end)
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID: domainbooking.BookingID(id), PropertyID: domainproperties.PropertyID(property), GuestID: guest,
		Range: dr, Guests: 2, Total: money.Must("200", "USD"), CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("NewBooking: %v", err)
	}
	return b
}

func fixture(t *testing.T) *Store {
	s := NewStore()
	seedUser(t, s, "host", domainuser.RoleHost)
	seedUser(t, s, "guest", domainuser.RoleGuest)
	seedUser(t, s, "other", domainuser.RoleGuest)
	seedUser(t, s, "admin", domainuser.RoleAdmin)
	seedProperty(t, s, "p1", "host")
	return s
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	s := fixture(t)
	ctx := context.Background()
	guest := dataservice.Actor{UserID: "guest"}
	if err := s.Procedures().CreateBooking(ctx, guest, newBooking(t, "b1", "p1", "guest", "2024-06-10", "2024-06-15")); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	err := s.Procedures().CreateBooking(ctx, guest, newBooking(t, "b2", "p1", "guest", "2024-06-14", "2024-06-16"))
	if !errors.Is(err, dataservice.ErrDatesTaken) || !errors.Is(err, dataservice.ErrConflict) {
		t.Fatalf("expected dates taken conflict, got %v", err)
	}
	if err := s.Procedures().CreateBooking(ctx, guest, newBooking(t, "b3", "p1", "guest", "2024-06-15", "2024-06-17")); err != nil {
		t.Fatalf("touching booking should succeed: %v", err)
	}
}

func TestCreateBookingGuards(t *testing.T) {
	s := fixture(t)
	ctx := context.Background()
	b := newBooking(t, "b1", "p1", "guest", "2024-06-10", "2024-06-12")
	if err := s.Procedures().CreateBooking(ctx, dataservice.Actor{UserID: "other"}, b); !errors.Is(err, dataservice.ErrForbidden) {
		t.Fatalf("expected forbidden for someone else's booking, got %v", err)
	}
	if _, err := s.Procedures().BanProperty(ctx, dataservice.Actor{UserID: "admin"}, "p1", "spam", now); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if err := s.Procedures().CreateBooking(ctx, dataservice.Actor{UserID: "guest"}, b); !errors.Is(err, dataservice.ErrPropertyBanned) {
		t.Fatalf("expected banned, got %v", err)
	}
}

func TestConcurrentBookingsOnlyOneWins(t *testing.T) {
	s := fixture(t)
	ctx := context.Background()
	attempts := make([]*domainbooking.Booking, 8)
	for i := range attempts {
		attempts[i] = newBooking(t, "b"+string(rune('a'+i)), "p1", "guest", "2024-07-01", "2024-07-05")
	}
	var wg sync.WaitGroup
	results := make(chan error, len(attempts))
	for _, b := range attempts {
		wg.Add(1)
		go func(b *domainbooking.Booking) {
			defer wg.Done()
			results <- s.Procedures().CreateBooking(ctx, dataservice.Actor{UserID: "guest"}, b)
		}(b)
	}
	wg.Wait()
	close(results)
	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, dataservice.ErrDatesTaken) {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one booking, got %d", wins)
	}
}

func TestBlockPolicy(t *testing.T) {
	s := fixture(t)
	ctx := context.Background()
	host := dataservice.Actor{UserID: "host"}
	if err := s.Procedures().CreateBooking(ctx, dataservice.Actor{UserID: "guest"}, newBooking(t, "b1", "p1", "guest", "2024-06-10", "2024-06-15")); err != nil {
		t.Fatalf("booking: %v", err)
	}
	dr := daterange.Must(time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC))
	block, _ := domainbooking.NewBlockedDate("k1", "p1", dr, "repairs", now)

	if err := s.Blocks().Insert(ctx, host, block, dataservice.BlockReject); !errors.Is(err, dataservice.ErrDatesTaken) {
		t.Fatalf("expected reject policy to refuse, got %v", err)
	}
	if err := s.Blocks().Insert(ctx, dataservice.Actor{UserID: "guest"}, block, dataservice.BlockAllow); !errors.Is(err, dataservice.ErrForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
	if err := s.Blocks().Insert(ctx, host, block, dataservice.BlockAllow); err != nil {
		t.Fatalf("allow policy: %v", err)
	}
	blocks, _ := s.Blocks().ActiveByProperty(ctx, "p1", now)
	if len(blocks) != 1 {
		t.Fatalf("expected stored block, got %d", len(blocks))
	}
	if err := s.Blocks().Delete(ctx, host, "p1", "k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Blocks().Delete(ctx, host, "p1", "k1"); !errors.Is(err, dataservice.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestCancelBookingPermissions(t *testing.T) {
	s := fixture(t)
	ctx := context.Background()
	if err := s.Procedures().CreateBooking(ctx, dataservice.Actor{UserID: "guest"}, newBooking(t, "b1", "p1", "guest", "2024-06-10", "2024-06-15")); err != nil {
		t.Fatalf("booking: %v", err)
	}
	if _, err := s.Procedures().CancelBooking(ctx, dataservice.Actor{UserID: "other"}, "b1", "", now); !errors.Is(err, dataservice.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	b, err := s.Procedures().CancelBooking(ctx, dataservice.Actor{UserID: "host"}, "b1", "maintenance", now)
	if err != nil {
		t.Fatalf("host cancel: %v", err)
	}
	if b.Status != domainbooking.StatusCancelled || len(b.PendingEvents()) != 1 {
		t.Fatalf("expected cancelled booking with event, got %+v", b)
	}
	if _, err := s.Procedures().CancelBooking(ctx, dataservice.Actor{UserID: "guest"}, "b1", "", now); !errors.Is(err, dataservice.ErrConflict) {
		t.Fatalf("expected conflict on second cancel, got %v", err)
	}
	active, _ := s.Bookings().ActiveByProperty(ctx, "p1", now)
	if len(active) != 0 {
		t.Fatalf("cancelled booking must not be active")
	}
}

func TestRemovePropertyCascades(t *testing.T) {
	s := fixture(t)
	ctx := context.Background()
	_ = s.Procedures().CreateBooking(ctx, dataservice.Actor{UserID: "guest"}, newBooking(t, "b1", "p1", "guest", "2024-06-10", "2024-06-15"))
	fav, _ := domainfavorites.New("guest", "p1", now)
	_ = s.Favorites().Add(ctx, fav)

	if _, err := s.Procedures().RemoveProperty(ctx, dataservice.Actor{UserID: "host"}, "p1", now); !errors.Is(err, dataservice.ErrForbidden) {
		t.Fatalf("expected only admins to remove, got %v", err)
	}
	res, err := s.Procedures().RemoveProperty(ctx, dataservice.Actor{UserID: "admin"}, "p1", now)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(res.Cancelled) != 1 || res.Cancelled[0].Status != domainbooking.StatusCancelled {
		t.Fatalf("expected one cancelled booking, got %+v", res.Cancelled)
	}
	if _, err := s.Properties().ByID(ctx, "p1"); !errors.Is(err, dataservice.ErrNotFound) {
		t.Fatalf("expected property gone, got %v", err)
	}
	favs, _ := s.Favorites().ByUser(ctx, "guest")
	if len(favs) != 0 {
		t.Fatalf("expected favorites removed")
	}
	b, _ := s.Bookings().ByID(ctx, "b1")
	if b.Status != domainbooking.StatusCancelled {
		t.Fatalf("booking must be kept as cancelled")
	}
}

func TestMarkAllReadIsAtomic(t *testing.T) {
	s := fixture(t)
	ctx := context.Background()
	n, _ := domainnotifications.New(domainnotifications.CreateParams{ID: "n1", UserID: "guest", Title: "hi", Now: now})
	_ = s.Notifications().Insert(ctx, n)
	err := s.Notifications().MarkAllRead(ctx, "guest", []domainnotifications.NotificationID{"n1", "missing"})
	if !errors.Is(err, dataservice.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	items, _ := s.Notifications().ByUser(ctx, "guest")
	if items[0].Read {
		t.Fatalf("no notification may change when the batch fails")
	}
}

func TestFavoritesAddKeepsOriginalTimestamp(t *testing.T) {
	s := fixture(t)
	ctx := context.Background()
	first, _ := domainfavorites.New("guest", "p1", now)
	later, _ := domainfavorites.New("guest", "p1", now.Add(time.Hour))
	_ = s.Favorites().Add(ctx, first)
	_ = s.Favorites().Add(ctx, later)
	favs, _ := s.Favorites().ByUser(ctx, "guest")
	if len(favs) != 1 || !favs[0].CreatedAt.Equal(now) {
		t.Fatalf("unexpected favorites %+v", favs)
	}
	if err := s.Favorites().Remove(ctx, "guest", "nope"); err != nil {
		t.Fatalf("removing absent favorite should succeed: %v", err)
	}
}

func TestPropertySaveRejectsStaleVersion(t *testing.T) {
	s := fixture(t)
	ctx := context.Background()
	a, _ := s.Properties().ByID(ctx, "p1")
	b, _ := s.Properties().ByID(ctx, "p1")
	if err := s.Properties().Save(ctx, a); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := s.Properties().Save(ctx, b); !errors.Is(err, dataservice.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSearchExcludesBanned(t *testing.T) {
	s := fixture(t)
	ctx := context.Background()
	seedProperty(t, s, "p2", "host")
	if _, err := s.Procedures().BanProperty(ctx, dataservice.Actor{UserID: "admin"}, "p2", "", now); err != nil {
		t.Fatalf("ban: %v", err)
	}
	res, err := s.Properties().Search(ctx, domainproperties.SearchParams{City: "lisbon"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 1 || res.Items[0].ID != "p1" {
		t.Fatalf("unexpected result %+v", res)
	}
}
