package properties

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"chakastays/internal/domain/shared/daterange"
	"chakastays/internal/domain/shared/money"
)

func newTestProperty(t *testing.T) *Property {
	t.Helper()
	p, err := NewProperty(CreateParams{
		ID:            "prop-1",
		Host:          "host-1",
		Title:         "  Lake house ",
		Location:      Location{City: "Nairobi", Country: "Kenya"},
		PricePerNight: money.Must("80", "USD"),
		Capacity:      Capacity{MaxGuests: 4, Bedrooms: 2, Beds: 2, Baths: 1},
		Amenities:     []string{"WiFi", "wifi", " Pool "},
		Now:           time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("NewProperty returned error: %v", err)
	}
	return p
}

func TestNewPropertyNormalizesInput(t *testing.T) {
	p := newTestProperty(t)
	if p.Title != "Lake house" {
		t.Fatalf("expected trimmed title, got %q", p.Title)
	}
	if len(p.Amenities) != 2 || p.Amenities[0] != "wifi" || p.Amenities[1] != "pool" {
		t.Fatalf("unexpected amenities %v", p.Amenities)
	}
	if len(p.PendingEvents()) != 1 {
		t.Fatalf("expected listed event, got %d events", len(p.PendingEvents()))
	}
}

func TestNewPropertyValidation(t *testing.T) {
	base := CreateParams{
		ID:            "p",
		Host:          "h",
		Title:         "t",
		PricePerNight: money.Must("10", "USD"),
		Capacity:      Capacity{MaxGuests: 1},
	}
	noGuests := base
	noGuests.Capacity.MaxGuests = 0
	if _, err := NewProperty(noGuests); !errors.Is(err, ErrGuestsLimit) {
		t.Fatalf("expected ErrGuestsLimit, got %v", err)
	}
	noTitle := base
	noTitle.Title = " "
	if _, err := NewProperty(noTitle); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	negative := base
	negative.PricePerNight = money.Money{Amount: decimal.NewFromInt(-5), Currency: "USD"}
	if _, err := NewProperty(negative); !errors.Is(err, money.ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestBanAndUnban(t *testing.T) {
	p := newTestProperty(t)
	p.ClearEvents()
	now := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	if err := p.Ban("spam", now); err != nil {
		t.Fatalf("Ban returned error: %v", err)
	}
	if err := p.Ban("again", now); !errors.Is(err, ErrAlreadyBanned) {
		t.Fatalf("expected ErrAlreadyBanned, got %v", err)
	}
	if err := p.Unban(now); err != nil {
		t.Fatalf("Unban returned error: %v", err)
	}
	if err := p.Unban(now); !errors.Is(err, ErrNotBanned) {
		t.Fatalf("expected ErrNotBanned, got %v", err)
	}
	if got := len(p.PendingEvents()); got != 2 {
		t.Fatalf("expected 2 events, got %d", got)
	}
}

func TestQuoteMultipliesNights(t *testing.T) {
	p := newTestProperty(t)
	dr := daterange.Must(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC))
	if got := p.Quote(dr).String(); got != "240.00 USD" {
		t.Fatalf("expected 240.00 USD, got %s", got)
	}
}

func TestRecordReviewAverages(t *testing.T) {
	p := newTestProperty(t)
	_ = p.RecordReview(4, time.Time{})
	_ = p.RecordReview(5, time.Time{})
	if p.ReviewCount != 2 || p.Rating != 4.5 {
		t.Fatalf("expected 2 reviews averaging 4.5, got %d / %v", p.ReviewCount, p.Rating)
	}
	if err := p.RecordReview(6, time.Time{}); !errors.Is(err, ErrRatingOutRange) {
		t.Fatalf("expected ErrRatingOutRange, got %v", err)
	}
}

func TestSearchParamsMatches(t *testing.T) {
	p := newTestProperty(t)
	cases := []struct {
		name   string
		params SearchParams
		want   bool
	}{
		{"empty filter", SearchParams{}, true},
		{"city match", SearchParams{City: "nairobi"}, true},
		{"city mismatch", SearchParams{City: "Mombasa"}, false},
		{"guests too many", SearchParams{MinGuests: 5}, false},
		{"price within", SearchParams{PriceMin: decimal.NewFromInt(50), PriceMax: decimal.NewFromInt(100)}, true},
		{"price above max", SearchParams{PriceMax: decimal.NewFromInt(60)}, false},
		{"amenity subset", SearchParams{Amenities: []string{"POOL"}}, true},
		{"amenity missing", SearchParams{Amenities: []string{"sauna"}}, false},
		{"query on title", SearchParams{Query: "lake"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.params.Normalized().Matches(p); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
	_ = p.Ban("", time.Time{})
	if (SearchParams{}).Normalized().Matches(p) {
		t.Fatalf("banned property must be hidden by default")
	}
	if !(SearchParams{IncludeBanned: true}).Normalized().Matches(p) {
		t.Fatalf("banned property must be visible when requested")
	}
}
