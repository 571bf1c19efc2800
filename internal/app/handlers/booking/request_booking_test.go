package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"chakastays/internal/app/apperr"
	"chakastays/internal/app/dataservice"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/outbox"
	"chakastays/internal/app/remote"
	"chakastays/internal/app/session"
	domainbooking "chakastays/internal/domain/booking"
	domainproperties "chakastays/internal/domain/properties"
	"chakastays/internal/domain/shared/daterange"
	"chakastays/internal/domain/shared/money"
	"chakastays/internal/domain/user"
	"chakastays/internal/infra/storage/memory"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingOutbox struct {
	records []outbox.EventRecord
}

func (o *recordingOutbox) Add(ctx context.Context, rec outbox.EventRecord) error {
	o.records = append(o.records, rec)
	return nil
}

func (o *recordingOutbox) Flush(ctx context.Context) error { return nil }

// staleData hides committed bookings from availability reads, like a lagging replica.
type staleData struct {
	dataservice.Service
}

func (d staleData) Bookings() dataservice.Bookings {
	return staleBookings{d.Service.Bookings()}
}

type staleBookings struct {
	dataservice.Bookings
}

func (staleBookings) ActiveByProperty(context.Context, domainproperties.PropertyID, time.Time) ([]*domainbooking.Booking, error) {
	return nil, nil
}

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	for _, id := range []string{"host", "g1", "g2"} {
		u, err := user.NewUser(user.CreateParams{ID: user.ID(id), Email: id + "@example.com", Name: id, PasswordHash: "x", CreatedAt: testNow})
		if err != nil {
			t.Fatalf("new user: %v", err)
		}
		if err := store.Users().Save(ctx, u); err != nil {
			t.Fatalf("save user: %v", err)
		}
	}
	p, err := domainproperties.NewProperty(domainproperties.CreateParams{
		ID:            "p1",
		Host:          "host",
		Title:         "Harbour Loft",
		PricePerNight: money.Must("100", "USD"),
		Capacity:      domainproperties.Capacity{MaxGuests: 2},
		Now:           testNow,
	})
	if err != nil {
		t.Fatalf("new property: %v", err)
	}
	p.ClearEvents()
	if err := store.Properties().Save(ctx, p); err != nil {
		t.Fatalf("save property: %v", err)
	}
	return store
}

func gatewayFor(data dataservice.Service) support.Gateway {
	return support.Gateway{
		Data:   data,
		Remote: remote.NewCaller(remote.Options{Timeout: time.Second}),
		Now:    func() time.Time { return testNow },
	}
}

func principal(id string) session.Principal {
	return session.Principal{UserID: id, Roles: []user.Role{user.RoleGuest}}
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestRequestBookingCreatesAndPublishes(t *testing.T) {
	store := seedStore(t)
	box := &recordingOutbox{}
	h := &RequestBookingHandler{Gateway: gatewayFor(store), Outbox: box, Encoder: outbox.JSONEventEncoder{}}

	res, err := h.Handle(context.Background(), RequestBookingCommand{
		Who: principal("g1"), CommandID: "b1", PropertyID: "p1", CheckIn: day(10), CheckOut: day(13), Guests: 2,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.ID != "b1" || res.Nights != 3 || res.Total.Amount != "300.00" {
		t.Fatalf("unexpected booking %+v", res)
	}
	if len(box.records) != 1 || box.records[0].Name != "booking.created" {
		t.Fatalf("unexpected outbox %+v", box.records)
	}
}

func TestRequestBookingRejectedLocally(t *testing.T) {
	store := seedStore(t)
	h := &RequestBookingHandler{Gateway: gatewayFor(store), Outbox: &recordingOutbox{}, Encoder: outbox.JSONEventEncoder{}}

	_, err := h.Handle(context.Background(), RequestBookingCommand{
		Who: principal("g1"), PropertyID: "p1", CheckIn: day(10), CheckOut: day(13), Guests: 3,
	})
	if apperr.ValidationReason(err) != string(domainbooking.ReasonCapacityExceeded) {
		t.Fatalf("expected capacity_exceeded, got %v", err)
	}
}

func TestRejectionCarriesReasonAndRange(t *testing.T) {
	dr := daterange.Must(day(10), day(13))
	err := rejection(domainbooking.Decision{State: domainbooking.StateRejected, Reason: domainbooking.ReasonDatesUnavailable, Range: dr})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Reason != string(domainbooking.ReasonDatesUnavailable) || verr.Detail != dr.String() {
		t.Fatalf("unexpected validation error %+v", verr)
	}

	err = rejection(domainbooking.Decision{State: domainbooking.StateRejected, Reason: domainbooking.ReasonInvalidRange})
	if apperr.ValidationReason(err) != string(domainbooking.ReasonInvalidRange) {
		t.Fatalf("expected invalid_range, got %v", err)
	}
	if errors.As(err, &verr) && verr.Detail != "" {
		t.Fatalf("unparsed range must not be reported, got %q", verr.Detail)
	}

	if err := rejection(domainbooking.Decision{State: domainbooking.StateAccepted, Range: dr}); err != nil {
		t.Fatalf("accepted decision must not error, got %v", err)
	}
}

func TestRequestBookingLosesRaceToProcedure(t *testing.T) {
	store := seedStore(t)
	taken, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID: "b0", PropertyID: "p1", GuestID: "g2", Range: daterange.Must(day(11), day(12)),
		Guests: 1, Total: money.Must("100", "USD"), CreatedAt: testNow,
	})
	if err != nil {
		t.Fatalf("new booking: %v", err)
	}
	if err := store.Procedures().CreateBooking(context.Background(), dataservice.Actor{UserID: "g2"}, taken); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	box := &recordingOutbox{}
	h := &RequestBookingHandler{Gateway: gatewayFor(staleData{store}), Outbox: box, Encoder: outbox.JSONEventEncoder{}}
	_, err = h.Handle(context.Background(), RequestBookingCommand{
		Who: principal("g1"), PropertyID: "p1", CheckIn: day(10), CheckOut: day(13), Guests: 1,
	})
	if apperr.RemoteCode(err) != apperr.CodeConflict {
		t.Fatalf("expected conflict from the data service, got %v", err)
	}
	if len(box.records) != 0 {
		t.Fatalf("rejected booking must not publish, got %+v", box.records)
	}
}

func TestCheckBookingAcceptsBackToBack(t *testing.T) {
	store := seedStore(t)
	gw := gatewayFor(store)
	create := &RequestBookingHandler{Gateway: gw, Outbox: &recordingOutbox{}, Encoder: outbox.JSONEventEncoder{}}
	if _, err := create.Handle(context.Background(), RequestBookingCommand{
		Who: principal("g1"), PropertyID: "p1", CheckIn: day(10), CheckOut: day(13), Guests: 1,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	check := &CheckBookingHandler{Gateway: gw}
	res, err := check.Handle(context.Background(), CheckBookingQuery{PropertyID: "p1", CheckIn: day(13), CheckOut: day(15), Guests: 1})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.State != string(domainbooking.StateAccepted) || res.Nights != 2 {
		t.Fatalf("unexpected check %+v", res)
	}
	res, err = check.Handle(context.Background(), CheckBookingQuery{PropertyID: "p1", CheckIn: day(12), CheckOut: day(14), Guests: 1})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Reason != string(domainbooking.ReasonDatesUnavailable) || res.Total != nil {
		t.Fatalf("expected dates_unavailable, got %+v", res)
	}
}

func TestCancelBookingPublishesOnce(t *testing.T) {
	store := seedStore(t)
	gw := gatewayFor(store)
	box := &recordingOutbox{}
	create := &RequestBookingHandler{Gateway: gw, Outbox: box, Encoder: outbox.JSONEventEncoder{}}
	created, err := create.Handle(context.Background(), RequestBookingCommand{
		Who: principal("g1"), CommandID: "b1", PropertyID: "p1", CheckIn: day(10), CheckOut: day(13), Guests: 1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cancel := &CancelBookingHandler{Gateway: gw, Outbox: box, Encoder: outbox.JSONEventEncoder{}}
	res, err := cancel.Handle(context.Background(), CancelBookingCommand{Who: principal("g1"), BookingID: created.ID, Reason: "sick"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.Status != string(domainbooking.StatusCancelled) {
		t.Fatalf("unexpected status %q", res.Status)
	}
	if _, err := cancel.Handle(context.Background(), CancelBookingCommand{Who: principal("g1"), BookingID: created.ID}); apperr.RemoteCode(err) != apperr.CodeConflict {
		t.Fatalf("expected conflict on second cancel, got %v", err)
	}
	if len(box.records) != 2 || box.records[1].Name != "booking.cancelled" {
		t.Fatalf("unexpected outbox %+v", box.records)
	}
}
