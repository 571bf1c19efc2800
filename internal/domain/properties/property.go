package properties

import (
	"context"
	"errors"
	"strings"
	"time"

	"chakastays/internal/domain/shared/daterange"
	"chakastays/internal/domain/shared/events"
	"chakastays/internal/domain/shared/money"
)

var (
	ErrIDRequired     = errors.New("properties: id is required")
	ErrHostRequired   = errors.New("properties: host is required")
	ErrTitleRequired  = errors.New("properties: title is required")
	ErrGuestsLimit    = errors.New("properties: max guests must be at least 1")
	ErrCapacity       = errors.New("properties: bedrooms, beds and baths must be non-negative")
	ErrAlreadyBanned  = errors.New("properties: property is already banned")
	ErrNotBanned      = errors.New("properties: property is not banned")
	ErrNotFound       = errors.New("properties: not found")
	ErrImageRequired  = errors.New("properties: image url is required")
	ErrPriceRequired  = errors.New("properties: price per night is required")
	ErrRatingOutRange = errors.New("properties: rating must be between 0 and 5")
)

type PropertyID string
type HostID string

type Location struct {
	Address string
	City    string
	Country string
}

type Capacity struct {
	MaxGuests int
	Bedrooms  int
	Beds      int
	Baths     float64
}

func (c Capacity) validate() error {
	if c.MaxGuests < 1 {
		return ErrGuestsLimit
	}
	if c.Bedrooms < 0 || c.Beds < 0 || c.Baths < 0 {
		return ErrCapacity
	}
	return nil
}

type Property struct {
	ID            PropertyID
	Host          HostID
	Title         string
	Description   string
	Location      Location
	PricePerNight money.Money
	Capacity      Capacity
	Amenities     []string
	Images        []string
	Banned        bool
	BanReason     string
	Rating        float64
	ReviewCount   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id PropertyID) (*Property, error)
	ByHost(ctx context.Context, host HostID) ([]*Property, error)
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
	Save(ctx context.Context, property *Property) error
}

type CreateParams struct {
	ID            PropertyID
	Host          HostID
	Title         string
	Description   string
	Location      Location
	PricePerNight money.Money
	Capacity      Capacity
	Amenities     []string
	Images        []string
	Now           time.Time
}

func NewProperty(params CreateParams) (*Property, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, ErrHostRequired
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if params.PricePerNight.Currency == "" {
		return nil, ErrPriceRequired
	}
	if params.PricePerNight.Amount.IsNegative() {
		return nil, money.ErrNegativeAmount
	}
	if err := params.Capacity.validate(); err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	p := &Property{
		ID:            params.ID,
		Host:          params.Host,
		Title:         title,
		Description:   strings.TrimSpace(params.Description),
		Location:      trimLocation(params.Location),
		PricePerNight: params.PricePerNight,
		Capacity:      params.Capacity,
		Amenities:     NormalizeAmenities(params.Amenities),
		Images:        append([]string(nil), params.Images...),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	p.Record(PropertyListed{PropertyID: p.ID, HostID: p.Host, At: now})
	return p, nil
}

// UpdateParams carries a full replacement of the host-editable fields.
type UpdateParams struct {
	Title         string
	Description   string
	Location      Location
	PricePerNight money.Money
	Capacity      Capacity
	Amenities     []string
	Now           time.Time
}

func (p *Property) Update(params UpdateParams) error {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return ErrTitleRequired
	}
	if params.PricePerNight.Currency == "" {
		return ErrPriceRequired
	}
	if params.PricePerNight.Amount.IsNegative() {
		return money.ErrNegativeAmount
	}
	if err := params.Capacity.validate(); err != nil {
		return err
	}
	p.Title = title
	p.Description = strings.TrimSpace(params.Description)
	p.Location = trimLocation(params.Location)
	p.PricePerNight = params.PricePerNight
	p.Capacity = params.Capacity
	p.Amenities = NormalizeAmenities(params.Amenities)
	p.touch(params.Now)
	return nil
}

func (p *Property) AddImage(url string, now time.Time) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return ErrImageRequired
	}
	p.Images = append(p.Images, url)
	p.touch(now)
	return nil
}

func (p *Property) Ban(reason string, now time.Time) error {
	if p.Banned {
		return ErrAlreadyBanned
	}
	p.Banned = true
	p.BanReason = strings.TrimSpace(reason)
	p.touch(now)
	p.Record(PropertyBanned{PropertyID: p.ID, HostID: p.Host, Reason: p.BanReason, At: p.UpdatedAt})
	return nil
}

func (p *Property) Unban(now time.Time) error {
	if !p.Banned {
		return ErrNotBanned
	}
	p.Banned = false
	p.BanReason = ""
	p.touch(now)
	p.Record(PropertyUnbanned{PropertyID: p.ID, HostID: p.Host, At: p.UpdatedAt})
	return nil
}

// Remove records the removal. Deleting the stored record is up to the data service.
func (p *Property) Remove(now time.Time) {
	p.touch(now)
	p.Record(PropertyRemoved{PropertyID: p.ID, HostID: p.Host, At: p.UpdatedAt})
}

// RecordReview folds a new 1..5 rating into the running average.
func (p *Property) RecordReview(rating float64, now time.Time) error {
	if rating < 0 || rating > 5 {
		return ErrRatingOutRange
	}
	total := p.Rating*float64(p.ReviewCount) + rating
	p.ReviewCount++
	p.Rating = total / float64(p.ReviewCount)
	p.touch(now)
	return nil
}

func (p *Property) OwnedBy(host HostID) bool {
	return p.Host == host
}

// Quote prices a stay at the nightly rate; no fees or discounts apply.
func (p *Property) Quote(dr daterange.DateRange) money.Money {
	return p.PricePerNight.Multiply(int64(dr.Nights()))
}

// Clone returns a deep copy without pending events.
func (p *Property) Clone() *Property {
	if p == nil {
		return nil
	}
	out := *p
	out.Amenities = append([]string(nil), p.Amenities...)
	out.Images = append([]string(nil), p.Images...)
	out.EventRecorder = events.EventRecorder{}
	return &out
}

func (p *Property) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	p.UpdatedAt = now.UTC()
}

// NormalizeAmenities lower-cases, trims and de-duplicates amenity tokens keeping first-seen order.
func NormalizeAmenities(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func trimLocation(l Location) Location {
	return Location{
		Address: strings.TrimSpace(l.Address),
		City:    strings.TrimSpace(l.City),
		Country: strings.TrimSpace(l.Country),
	}
}
