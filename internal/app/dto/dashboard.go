package dto

import "chakastays/internal/domain/analytics"

type RevenueBucket struct {
	Label        string `json:"label"`
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	Revenue      string `json:"revenue"`
	BookingCount int    `json:"booking_count"`
}

type HostDashboard struct {
	Currency      string          `json:"currency"`
	Revenue       string          `json:"revenue"`
	BookingCount  int             `json:"booking_count"`
	PropertyCount int             `json:"property_count"`
	AverageRating float64         `json:"average_rating"`
	KeyMode       string          `json:"key_mode"`
	Months        []RevenueBucket `json:"months"`
}

func MapHostDashboard(s analytics.Summary, currency string, mode analytics.KeyMode) HostDashboard {
	out := HostDashboard{
		Currency:      currency,
		Revenue:       s.Revenue.StringFixed(2),
		BookingCount:  s.BookingCount,
		PropertyCount: s.PropertyCount,
		AverageRating: s.AverageRating,
		KeyMode:       string(mode),
		Months:        make([]RevenueBucket, 0, len(s.Buckets)),
	}
	for _, b := range s.Buckets {
		out.Months = append(out.Months, RevenueBucket{
			Label:        b.Label,
			Year:         b.Year,
			Month:        int(b.Month),
			Revenue:      b.Revenue.StringFixed(2),
			BookingCount: b.BookingCount,
		})
	}
	return out
}
