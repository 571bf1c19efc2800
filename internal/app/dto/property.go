package dto

import (
	"time"

	domainproperties "chakastays/internal/domain/properties"
	"chakastays/internal/domain/shared/money"
)

// Money carries amounts as fixed two-decimal strings to avoid float rounding on the wire.
type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(value money.Money) Money {
	return Money{Amount: value.Amount.StringFixed(2), Currency: value.Currency}
}

type Location struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type Capacity struct {
	MaxGuests int     `json:"max_guests"`
	Bedrooms  int     `json:"bedrooms"`
	Beds      int     `json:"beds"`
	Baths     float64 `json:"baths"`
}

type PropertySummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Location      Location  `json:"location"`
	PricePerNight Money     `json:"price_per_night"`
	MaxGuests     int       `json:"max_guests"`
	ThumbnailURL  string    `json:"thumbnail_url,omitempty"`
	Rating        float64   `json:"rating"`
	ReviewCount   int       `json:"review_count"`
	Banned        bool      `json:"is_banned"`
	CreatedAt     time.Time `json:"created_at"`
}

type PropertyDetail struct {
	PropertySummary
	HostID      string    `json:"host_id"`
	Description string    `json:"description"`
	Capacity    Capacity  `json:"capacity"`
	Amenities   []string  `json:"amenities"`
	Images      []string  `json:"images"`
	BanReason   string    `json:"ban_reason,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type PropertyCollection struct {
	Items []PropertySummary `json:"items"`
	Total int               `json:"total"`
}

type ImageUploadResult struct {
	PropertyID string   `json:"property_id"`
	URL        string   `json:"url"`
	Images     []string `json:"images"`
}

func MapPropertySummary(p *domainproperties.Property) PropertySummary {
	if p == nil {
		return PropertySummary{}
	}
	out := PropertySummary{
		ID:    string(p.ID),
		Title: p.Title,
		Location: Location{
			Address: p.Location.Address,
			City:    p.Location.City,
			Country: p.Location.Country,
		},
		PricePerNight: MapMoney(p.PricePerNight),
		MaxGuests:     p.Capacity.MaxGuests,
		Rating:        p.Rating,
		ReviewCount:   p.ReviewCount,
		Banned:        p.Banned,
		CreatedAt:     p.CreatedAt,
	}
	if len(p.Images) > 0 {
		out.ThumbnailURL = p.Images[0]
	}
	return out
}

func MapPropertyDetail(p *domainproperties.Property) PropertyDetail {
	if p == nil {
		return PropertyDetail{}
	}
	return PropertyDetail{
		PropertySummary: MapPropertySummary(p),
		HostID:          string(p.Host),
		Description:     p.Description,
		Capacity: Capacity{
			MaxGuests: p.Capacity.MaxGuests,
			Bedrooms:  p.Capacity.Bedrooms,
			Beds:      p.Capacity.Beds,
			Baths:     p.Capacity.Baths,
		},
		Amenities: append([]string{}, p.Amenities...),
		Images:    append([]string{}, p.Images...),
		BanReason: p.BanReason,
		UpdatedAt: p.UpdatedAt,
	}
}

func MapPropertyCollection(items []*domainproperties.Property, total int) PropertyCollection {
	out := PropertyCollection{Items: make([]PropertySummary, 0, len(items)), Total: total}
	for _, p := range items {
		out.Items = append(out.Items, MapPropertySummary(p))
	}
	return out
}
