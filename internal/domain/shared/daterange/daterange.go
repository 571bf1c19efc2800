package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: end must be after start")
)

const layout = "2006-01-02"

// DateRange is a half-open interval of calendar days [Start, End).
// Both bounds are kept at UTC midnight.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// New builds a range from two instants, truncating both to their calendar day.
func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: Day(start), End: Day(end)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Must is New that panics on invalid input; meant for fixtures and tests.
func Must(start, end time.Time) DateRange {
	dr, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return dr
}

// Parse reads two YYYY-MM-DD dates.
func Parse(start, end string) (DateRange, error) {
	s, err := time.Parse(layout, start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := time.Parse(layout, end)
	if err != nil {
		return DateRange{}, err
	}
	return New(s, e)
}

// Day truncates t to midnight UTC of the calendar day t falls on in its own location.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ErrInvalidRange
	}
	if !dr.End.After(dr.Start) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Nights() int {
	return int(dr.End.Sub(dr.Start).Hours() / 24)
}

// Overlaps reports whether the two ranges share at least one day. Touching ranges do not overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.Start.Before(other.End) && other.Start.Before(dr.End)
}

func (dr DateRange) Contains(other DateRange) bool {
	return !other.Start.Before(dr.Start) && !other.End.After(dr.End)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = Day(t)
	return !t.Before(dr.Start) && t.Before(dr.End)
}

func (dr DateRange) Adjacent(other DateRange) bool {
	return dr.End.Equal(other.Start) || dr.Start.Equal(other.End)
}

func (dr DateRange) Merge(other DateRange) (DateRange, bool) {
	if !(dr.Overlaps(other) || dr.Adjacent(other)) {
		return DateRange{}, false
	}
	start := dr.Start
	if other.Start.Before(start) {
		start = other.Start
	}
	end := dr.End
	if other.End.After(end) {
		end = other.End
	}
	return DateRange{Start: start, End: end}, true
}

func (dr DateRange) String() string {
	return "[" + dr.Start.Format(layout) + ", " + dr.End.Format(layout) + ")"
}
