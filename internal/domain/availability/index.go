package availability

import (
	"sort"
	"time"

	"chakastays/internal/domain/booking"
	"chakastays/internal/domain/shared/daterange"
)

type Source string

const (
	SourceBooking Source = "booking"
	SourceBlock   Source = "block"
)

// Entry is one unavailable interval and where it came from.
type Entry struct {
	Range     daterange.DateRange
	Source    Source
	Reference string
}

// Index is the deny-list of a single property. It is immutable after construction.
type Index struct {
	entries []Entry
}

// Prune drops cancelled bookings and everything that ended before today.
// An entry ending exactly today is kept.
func Prune(bookings []*booking.Booking, blocks []*booking.BlockedDate, today time.Time) ([]*booking.Booking, []*booking.BlockedDate) {
	cutoff := daterange.Day(today)
	keptBookings := make([]*booking.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b == nil || !b.Active() || b.Range.End.Before(cutoff) {
			continue
		}
		keptBookings = append(keptBookings, b)
	}
	keptBlocks := make([]*booking.BlockedDate, 0, len(blocks))
	for _, bl := range blocks {
		if bl == nil || bl.Range.End.Before(cutoff) {
			continue
		}
		keptBlocks = append(keptBlocks, bl)
	}
	return keptBookings, keptBlocks
}

// NewIndex builds the index from already pruned inputs. Cancelled bookings are ignored regardless.
func NewIndex(bookings []*booking.Booking, blocks []*booking.BlockedDate) *Index {
	entries := make([]Entry, 0, len(bookings)+len(blocks))
	for _, b := range bookings {
		if b == nil || !b.Active() {
			continue
		}
		entries = append(entries, Entry{Range: b.Range, Source: SourceBooking, Reference: string(b.ID)})
	}
	for _, bl := range blocks {
		if bl == nil {
			continue
		}
		entries = append(entries, Entry{Range: bl.Range, Source: SourceBlock, Reference: string(bl.ID)})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Range.Start.Before(entries[j].Range.Start)
	})
	return &Index{entries: entries}
}

// IsFree reports whether r overlaps none of the indexed intervals.
func (idx *Index) IsFree(r daterange.DateRange) bool {
	if idx == nil {
		return true
	}
	for _, e := range idx.entries {
		if e.Range.Overlaps(r) {
			return false
		}
	}
	return true
}

// Conflicts lists the entries overlapping r, ordered by start.
func (idx *Index) Conflicts(r daterange.DateRange) []Entry {
	if idx == nil {
		return nil
	}
	var out []Entry
	for _, e := range idx.entries {
		if e.Range.Overlaps(r) {
			out = append(out, e)
		}
	}
	return out
}

// ConflictsWithBookings is Conflicts restricted to booking entries.
func (idx *Index) ConflictsWithBookings(r daterange.DateRange) []Entry {
	var out []Entry
	for _, e := range idx.Conflicts(r) {
		if e.Source == SourceBooking {
			out = append(out, e)
		}
	}
	return out
}

// DisabledMatchers exposes the raw intervals for calendar rendering.
func (idx *Index) DisabledMatchers() []daterange.DateRange {
	if idx == nil {
		return nil
	}
	out := make([]daterange.DateRange, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, e.Range)
	}
	return out
}

func (idx *Index) Entries() []Entry {
	if idx == nil {
		return nil
	}
	return append([]Entry(nil), idx.entries...)
}

func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}
