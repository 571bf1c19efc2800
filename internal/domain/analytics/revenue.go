package analytics

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"chakastays/internal/domain/booking"
	"chakastays/internal/domain/properties"
)

const DefaultWindow = 6

var ErrUnknownKeyMode = errors.New("analytics: unknown key mode")

// KeyMode selects how bookings are matched to month buckets.
type KeyMode string

const (
	// KeyYearMonth matches on the (year, month) pair.
	KeyYearMonth KeyMode = "year_month"
	// KeyLegacyLabel matches on the month label only, so a booking from a previous
	// year lands in the bucket with the same month name.
	KeyLegacyLabel KeyMode = "label"
)

func ParseKeyMode(value string) (KeyMode, error) {
	switch KeyMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", KeyYearMonth:
		return KeyYearMonth, nil
	case KeyLegacyLabel:
		return KeyLegacyLabel, nil
	default:
		return "", ErrUnknownKeyMode
	}
}

type Options struct {
	Window int
	Mode   KeyMode
}

func (o Options) normalized() Options {
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.Mode == "" {
		o.Mode = KeyYearMonth
	}
	return o
}

type Bucket struct {
	Label        string
	Year         int
	Month        time.Month
	Revenue      decimal.Decimal
	BookingCount int
}

// Aggregate buckets bookings by creation month into a trailing window ending at now's month.
// Buckets are ordered oldest to newest. Cancelled bookings and bookings outside the window are skipped.
func Aggregate(now time.Time, bookings []*booking.Booking, opts Options) []Bucket {
	opts = opts.normalized()
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(opts.Window - 1), 0)

	buckets := make([]Bucket, opts.Window)
	for i := range buckets {
		m := first.AddDate(0, i, 0)
		buckets[i] = Bucket{
			Label:   m.Format("Jan"),
			Year:    m.Year(),
			Month:   m.Month(),
			Revenue: decimal.Zero,
		}
	}

	for _, b := range bookings {
		if b == nil || !b.Active() {
			continue
		}
		idx := bucketIndex(buckets, b.CreatedAt.UTC(), opts.Mode)
		if idx < 0 {
			continue
		}
		buckets[idx].Revenue = buckets[idx].Revenue.Add(b.Total.Amount)
		buckets[idx].BookingCount++
	}
	return buckets
}

func bucketIndex(buckets []Bucket, at time.Time, mode KeyMode) int {
	for i, bucket := range buckets {
		switch mode {
		case KeyLegacyLabel:
			if bucket.Label == at.Format("Jan") {
				return i
			}
		default:
			if bucket.Year == at.Year() && bucket.Month == at.Month() {
				return i
			}
		}
	}
	return -1
}

// Summary is the dashboard header for a host.
type Summary struct {
	Revenue       decimal.Decimal
	BookingCount  int
	PropertyCount int
	AverageRating float64
	Buckets       []Bucket
}

// Summarize totals the window and averages the rating over rated properties.
func Summarize(now time.Time, props []*properties.Property, bookings []*booking.Booking, opts Options) Summary {
	buckets := Aggregate(now, bookings, opts)
	s := Summary{Revenue: decimal.Zero, PropertyCount: len(props), Buckets: buckets}
	for _, b := range buckets {
		s.Revenue = s.Revenue.Add(b.Revenue)
		s.BookingCount += b.BookingCount
	}
	var rated int
	var sum float64
	for _, p := range props {
		if p == nil || p.ReviewCount == 0 {
			continue
		}
		rated++
		sum += p.Rating
	}
	if rated > 0 {
		s.AverageRating = sum / float64(rated)
	}
	return s
}
