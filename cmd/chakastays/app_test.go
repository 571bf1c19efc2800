package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"

	"chakastays/internal/app/dto"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/remote"
	authsvc "chakastays/internal/app/services/auth"
	"chakastays/internal/infra/config"
	ginserver "chakastays/internal/infra/http/gin"
	"chakastays/internal/infra/obs"
	"chakastays/internal/infra/security"
	"chakastays/internal/infra/storage/memory"
	"chakastays/internal/infra/storage/s3"
)

type testApp struct {
	router http.Handler
	store  *memory.Store
	auth   *authsvc.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	box := memory.NewOutbox(nil)
	cfg := config.Config{Env: "test", Currency: "USD", RevenueWindow: 12}
	gw := support.Gateway{
		Data:   store,
		Remote: remote.NewCaller(remote.Options{Timeout: time.Second}),
		Now:    func() time.Time { return now },
	}
	b, err := buildBuses(cfg, wiring{
		Data:        store,
		Gateway:     gw,
		Outbox:      box,
		Idempotency: memory.NewIdempotencyStore(time.Hour, gw.Now),
		Files:       s3.NoopUploader{},
	})
	if err != nil {
		t.Fatalf("build buses: %v", err)
	}
	box.Subscribe(b.Trigger)

	auth := &authsvc.Service{
		Users:     store.Users(),
		Sessions:  store.Sessions(),
		Passwords: security.BcryptHasher{},
		Tokens:    security.RandomTokenGenerator{},
	}
	router := ginserver.NewRouter(cfg, obs.Middleware{}, obs.HealthHandlers{Ready: store.Ping}, ginserver.Handlers{
		Property:       ginserver.PropertyHandler{Queries: b.Queries},
		Booking:        ginserver.BookingHandler{Commands: b.Commands, Queries: b.Queries},
		Host:           ginserver.HostHandler{Commands: b.Commands, Queries: b.Queries},
		Me:             ginserver.MeHandler{Commands: b.Commands, Queries: b.Queries},
		Admin:          ginserver.AdminHandler{Commands: b.Commands},
		Auth:           ginserver.AuthHandler{Service: auth},
		AuthMiddleware: ginserver.AuthMiddleware{Resolver: auth}.Handle,
	})
	return &testApp{router: router, store: store, auth: auth}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) register(t *testing.T, email string, host bool) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":        email,
		"name":         "Test " + email,
		"password":     "correct-horse-1",
		"want_to_host": host,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	var resp dto.AuthResponse
	decode(t, rec, &resp)
	return resp.Token
}

func (a *testApp) createProperty(t *testing.T, token string) dto.PropertyDetail {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/host/properties", token, map[string]any{
		"title":           "Harbour Loft",
		"city":            "Lisbon",
		"country":         "PT",
		"price_per_night": "100.00",
		"max_guests":      2,
		"bedrooms":        1,
		"beds":            1,
		"baths":           1,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create property: status %d body %s", rec.Code, rec.Body.String())
	}
	var detail dto.PropertyDetail
	decode(t, rec, &detail)
	return detail
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func bookingBody(propertyID, checkIn, checkOut string, guests int) map[string]any {
	return map[string]any{
		"property_id": propertyID,
		"check_in":    checkIn,
		"check_out":   checkOut,
		"guests":      guests,
	}
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)
	if rec := app.do(t, http.MethodGet, "/livez", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("livez: %d", rec.Code)
	}
	if rec := app.do(t, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz: %d", rec.Code)
	}
}

func TestAuthRegisterLoginMe(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "ada@example.com", false)

	rec := app.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email": "ada@example.com", "name": "Ada", "password": "correct-horse-1",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", rec.Code)
	}

	rec = app.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": "ada@example.com", "password": "wrong-password"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", rec.Code)
	}
	rec = app.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": "ADA@example.com", "password": "correct-horse-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var login dto.AuthResponse
	decode(t, rec, &login)

	rec = app.do(t, http.MethodGet, "/api/v1/auth/me", login.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: %d", rec.Code)
	}
	var profile dto.UserProfile
	decode(t, rec, &profile)
	if profile.Email != "ada@example.com" {
		t.Fatalf("unexpected profile %+v", profile)
	}

	if rec := app.do(t, http.MethodPost, "/api/v1/auth/logout", login.Token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d", rec.Code)
	}
	if rec := app.do(t, http.MethodGet, "/api/v1/auth/me", login.Token, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", rec.Code)
	}
}

func TestRoleGuards(t *testing.T) {
	app := newTestApp(t)
	guest := app.register(t, "guest@example.com", false)

	if rec := app.do(t, http.MethodPost, "/api/v1/bookings", "", bookingBody("p1", "2026-03-10", "2026-03-12", 1)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous booking: expected 401, got %d", rec.Code)
	}
	if rec := app.do(t, http.MethodGet, "/api/v1/host/properties", guest, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("guest host listing: expected 403, got %d", rec.Code)
	}
	if rec := app.do(t, http.MethodPost, "/api/v1/admin/properties/p1/ban", guest, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("guest ban: expected 403, got %d", rec.Code)
	}
}

func TestBookingFlow(t *testing.T) {
	app := newTestApp(t)
	host := app.register(t, "host@example.com", true)
	guest := app.register(t, "guest@example.com", false)
	other := app.register(t, "other@example.com", false)
	property := app.createProperty(t, host)

	rec := app.do(t, http.MethodPost, "/api/v1/bookings/check", "", bookingBody(property.ID, "2026-03-10", "2026-03-13", 2))
	if rec.Code != http.StatusOK {
		t.Fatalf("check: %d %s", rec.Code, rec.Body.String())
	}
	var check dto.BookingCheck
	decode(t, rec, &check)
	if check.State != "accepted" || check.Nights != 3 || check.Total == nil || check.Total.Amount != "300.00" {
		t.Fatalf("unexpected check %+v", check)
	}

	rec = app.do(t, http.MethodPost, "/api/v1/bookings/check", "", bookingBody(property.ID, "2026-03-10", "2026-03-13", 3))
	decode(t, rec, &check)
	if check.State != "rejected" || check.Reason != "capacity_exceeded" {
		t.Fatalf("expected capacity rejection, got %+v", check)
	}

	rec = app.do(t, http.MethodPost, "/api/v1/bookings", guest, bookingBody(property.ID, "2026-03-10", "2026-03-13", 2))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create booking: %d %s", rec.Code, rec.Body.String())
	}
	var booking dto.Booking
	decode(t, rec, &booking)
	if booking.Status != "confirmed" || booking.Nights != 3 || booking.Total.Amount != "300.00" {
		t.Fatalf("unexpected booking %+v", booking)
	}

	rec = app.do(t, http.MethodPost, "/api/v1/bookings", other, bookingBody(property.ID, "2026-03-12", "2026-03-14", 1))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("overlapping booking: expected 422, got %d %s", rec.Code, rec.Body.String())
	}
	var failure struct {
		Reason string `json:"reason"`
	}
	decode(t, rec, &failure)
	if failure.Reason != "dates_unavailable" {
		t.Fatalf("unexpected reason %q", failure.Reason)
	}

	// Check-out day is free for the next arrival.
	rec = app.do(t, http.MethodPost, "/api/v1/bookings/check", "", bookingBody(property.ID, "2026-03-13", "2026-03-15", 1))
	decode(t, rec, &check)
	if check.State != "accepted" {
		t.Fatalf("back-to-back stay should be accepted, got %+v", check)
	}

	var feed dto.NotificationFeed
	decode(t, app.do(t, http.MethodGet, "/api/v1/me/notifications", guest, nil), &feed)
	if feed.Unread != 1 || len(feed.Items) != 1 || feed.Items[0].Type != "booking_created" {
		t.Fatalf("unexpected guest feed %+v", feed)
	}
	decode(t, app.do(t, http.MethodGet, "/api/v1/me/notifications", host, nil), &feed)
	if feed.Unread != 1 {
		t.Fatalf("unexpected host feed %+v", feed)
	}
	if rec := app.do(t, http.MethodPost, "/api/v1/me/notifications/read-all", host, nil); rec.Code != http.StatusOK {
		t.Fatalf("read-all: %d", rec.Code)
	}
	decode(t, app.do(t, http.MethodGet, "/api/v1/me/notifications", host, nil), &feed)
	if feed.Unread != 0 {
		t.Fatalf("expected all read, got %+v", feed)
	}

	if rec := app.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/cancel", other, nil); rec.Code == http.StatusOK {
		t.Fatalf("stranger must not cancel the booking")
	}
	rec = app.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/cancel", guest, map[string]string{"reason": "plans changed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &booking)
	if booking.Status != "cancelled" || booking.CancelReason != "plans changed" {
		t.Fatalf("unexpected cancelled booking %+v", booking)
	}
	if rec := app.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/cancel", guest, nil); rec.Code != http.StatusConflict {
		t.Fatalf("second cancel: expected 409, got %d", rec.Code)
	}

	var mine dto.BookingCollection
	decode(t, app.do(t, http.MethodGet, "/api/v1/me/bookings", guest, nil), &mine)
	if len(mine.Items) != 1 || mine.Items[0].Status != "cancelled" {
		t.Fatalf("unexpected guest bookings %+v", mine)
	}
}

func TestBookingIdempotencyKeyReplaysResult(t *testing.T) {
	app := newTestApp(t)
	host := app.register(t, "host@example.com", true)
	guest := app.register(t, "guest@example.com", false)
	property := app.createProperty(t, host)

	body := bookingBody(property.ID, "2026-04-01", "2026-04-03", 1)
	first := app.do(t, http.MethodPost, "/api/v1/bookings", guest, body, "Idempotency-Key", "k-1")
	second := app.do(t, http.MethodPost, "/api/v1/bookings", guest, body, "Idempotency-Key", "k-1")
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("expected both 201, got %d and %d (%s)", first.Code, second.Code, second.Body.String())
	}
	var a, b dto.Booking
	decode(t, first, &a)
	decode(t, second, &b)
	if a.ID == "" || a.ID != b.ID {
		t.Fatalf("expected replayed booking, got %q and %q", a.ID, b.ID)
	}
}

func TestAdminBanHidesProperty(t *testing.T) {
	app := newTestApp(t)
	host := app.register(t, "host@example.com", true)
	guest := app.register(t, "guest@example.com", false)
	property := app.createProperty(t, host)

	if _, err := app.auth.EnsureAdmin(context.Background(), "admin@example.com", "Admin", "correct-horse-1"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	rec := app.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": "admin@example.com", "password": "correct-horse-1"})
	var login dto.AuthResponse
	decode(t, rec, &login)

	rec = app.do(t, http.MethodPost, "/api/v1/admin/properties/"+property.ID+"/ban", login.Token, map[string]string{"reason": "fake listing"})
	if rec.Code != http.StatusOK {
		t.Fatalf("ban: %d %s", rec.Code, rec.Body.String())
	}
	if rec := app.do(t, http.MethodPost, "/api/v1/admin/properties/"+property.ID+"/ban", login.Token, nil); rec.Code != http.StatusConflict {
		t.Fatalf("second ban: expected 409, got %d", rec.Code)
	}

	if rec := app.do(t, http.MethodGet, "/api/v1/properties/"+property.ID, guest, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("guest view of banned property: expected 404, got %d", rec.Code)
	}
	rec = app.do(t, http.MethodGet, "/api/v1/properties/"+property.ID, host, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("host view of banned property: %d", rec.Code)
	}
	var detail dto.PropertyDetail
	decode(t, rec, &detail)
	if !detail.Banned || detail.BanReason != "fake listing" {
		t.Fatalf("unexpected detail %+v", detail)
	}

	var check dto.BookingCheck
	decode(t, app.do(t, http.MethodPost, "/api/v1/bookings/check", "", bookingBody(property.ID, "2026-03-10", "2026-03-12", 1)), &check)
	if check.State != "rejected" || check.Reason != "property_banned" {
		t.Fatalf("expected banned rejection, got %+v", check)
	}

	var results dto.PropertyCollection
	decode(t, app.do(t, http.MethodGet, "/api/v1/properties?city=Lisbon", "", nil), &results)
	if results.Total != 0 {
		t.Fatalf("banned property must not be searchable, got %+v", results)
	}
}

func TestLoadFixtures(t *testing.T) {
	app := newTestApp(t)
	path := filepath.Join(t.TempDir(), "fixtures.json")
	fixtures := `{
  "hosts": [{"email": "seed@example.com", "name": "Seed Host", "password": "correct-horse-1"}],
  "properties": [{
    "id": "seed-1", "host_email": "seed@example.com", "title": "Alfama Studio",
    "city": "Lisbon", "country": "PT", "price_per_night": "80",
    "max_guests": 2, "bedrooms": 1, "beds": 1, "baths": 1,
    "amenities": ["WiFi", "wifi"], "reviews": [4, 5]
  }]
}`
	if err := os.WriteFile(path, []byte(fixtures), 0o600); err != nil {
		t.Fatalf("write fixtures: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := loadFixtures(ctx, path, app.store, app.auth, "USD", discardLogger()); err != nil {
			t.Fatalf("load fixtures pass %d: %v", i, err)
		}
	}

	var results dto.PropertyCollection
	decode(t, app.do(t, http.MethodGet, "/api/v1/properties?city=Lisbon", "", nil), &results)
	if results.Total != 1 || results.Items[0].ID != "seed-1" {
		t.Fatalf("unexpected search %+v", results)
	}
	if got := results.Items[0].Rating; got != 4.5 {
		t.Fatalf("expected rating 4.5, got %v", got)
	}
	if err := loadFixtures(ctx, filepath.Join(t.TempDir(), "missing.json"), app.store, app.auth, "USD", discardLogger()); err != nil {
		t.Fatalf("missing file should be skipped: %v", err)
	}
}

func TestHostDashboardAndListings(t *testing.T) {
	app := newTestApp(t)
	host := app.register(t, "host@example.com", true)
	guest := app.register(t, "guest@example.com", false)
	property := app.createProperty(t, host)

	if rec := app.do(t, http.MethodPost, "/api/v1/bookings", guest, bookingBody(property.ID, "2026-04-01", "2026-04-03", 1)); rec.Code != http.StatusCreated {
		t.Fatalf("create booking: %d %s", rec.Code, rec.Body.String())
	}

	rec := app.do(t, http.MethodGet, "/api/v1/host/dashboard", host, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: %d %s", rec.Code, rec.Body.String())
	}
	var dash dto.HostDashboard
	decode(t, rec, &dash)
	if dash.Revenue != "200.00" || dash.BookingCount != 1 || dash.PropertyCount != 1 || len(dash.Months) != 12 {
		t.Fatalf("unexpected dashboard %+v", dash)
	}
	if last := dash.Months[len(dash.Months)-1]; last.Year != 2026 || last.Month != 3 || last.BookingCount != 1 {
		t.Fatalf("booking should land in the current month, got %+v", last)
	}

	rec = app.do(t, http.MethodPut, "/api/v1/host/properties/"+property.ID, host, map[string]any{
		"title":           "Harbour Loft Deluxe",
		"city":            "Lisbon",
		"country":         "PT",
		"price_per_night": "120.00",
		"max_guests":      3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}

	var mine dto.PropertyCollection
	decode(t, app.do(t, http.MethodGet, "/api/v1/host/properties", host, nil), &mine)
	if len(mine.Items) != 1 || mine.Items[0].Title != "Harbour Loft Deluxe" || mine.Items[0].PricePerNight.Amount != "120.00" {
		t.Fatalf("unexpected host listings %+v", mine)
	}

	if rec := app.do(t, http.MethodPut, "/api/v1/me/favorites/"+property.ID, guest, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("add favorite: %d %s", rec.Code, rec.Body.String())
	}
	var favs dto.FavoriteCollection
	decode(t, app.do(t, http.MethodGet, "/api/v1/me/favorites", guest, nil), &favs)
	if len(favs.Items) != 1 || favs.Items[0].Property.ID != property.ID {
		t.Fatalf("unexpected favorites %+v", favs)
	}
	if rec := app.do(t, http.MethodDelete, "/api/v1/me/favorites/"+property.ID, guest, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("remove favorite: %d", rec.Code)
	}

	rec = app.do(t, http.MethodGet, "/api/v1/properties/"+property.ID+"/availability", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("availability: %d %s", rec.Code, rec.Body.String())
	}
	var avail dto.Availability
	decode(t, rec, &avail)
	if len(avail.Disabled) != 1 || !avail.Disabled[0].Start.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected availability %+v", avail)
	}
}
