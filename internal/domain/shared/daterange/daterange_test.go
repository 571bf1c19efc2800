package daterange

import (
	"errors"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNewRejectsEmptyAndInvertedRanges(t *testing.T) {
	cases := []struct {
		name       string
		start, end time.Time
	}{
		{"zero length", day("2024-06-01"), day("2024-06-01")},
		{"inverted", day("2024-06-05"), day("2024-06-01")},
		{"zero start", time.Time{}, day("2024-06-01")},
		{"same day different hours", day("2024-06-01").Add(time.Hour), day("2024-06-01").Add(20 * time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.start, tc.end); !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("expected ErrInvalidRange, got %v", err)
			}
		})
	}
}

func TestNewTruncatesToCalendarDay(t *testing.T) {
	dr, err := New(day("2024-06-01").Add(15*time.Hour), day("2024-06-03").Add(9*time.Hour))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if !dr.Start.Equal(day("2024-06-01")) || !dr.End.Equal(day("2024-06-03")) {
		t.Fatalf("unexpected bounds %s", dr)
	}
	if dr.Nights() != 2 {
		t.Fatalf("expected 2 nights, got %d", dr.Nights())
	}
}

func TestOverlapsIsSymmetric(t *testing.T) {
	ranges := []DateRange{
		Must(day("2024-06-01"), day("2024-06-05")),
		Must(day("2024-06-03"), day("2024-06-04")),
		Must(day("2024-06-05"), day("2024-06-10")),
		Must(day("2024-05-20"), day("2024-06-02")),
		Must(day("2024-07-01"), day("2024-07-03")),
	}
	for _, a := range ranges {
		for _, b := range ranges {
			if a.Overlaps(b) != b.Overlaps(a) {
				t.Fatalf("overlap not symmetric for %s and %s", a, b)
			}
		}
	}
}

func TestTouchingRangesDoNotOverlap(t *testing.T) {
	a := Must(day("2024-06-01"), day("2024-06-05"))
	b := Must(day("2024-06-05"), day("2024-06-10"))
	if a.Overlaps(b) || b.Overlaps(a) {
		t.Fatalf("touching ranges %s and %s must not overlap", a, b)
	}
	if !a.Adjacent(b) {
		t.Fatalf("expected ranges to be adjacent")
	}
}

func TestContainsDateExcludesEnd(t *testing.T) {
	dr := Must(day("2024-06-01"), day("2024-06-05"))
	if !dr.ContainsDate(day("2024-06-01")) {
		t.Fatalf("start day must be contained")
	}
	if dr.ContainsDate(day("2024-06-05")) {
		t.Fatalf("end day must not be contained")
	}
}

func TestMerge(t *testing.T) {
	a := Must(day("2024-06-01"), day("2024-06-05"))
	b := Must(day("2024-06-05"), day("2024-06-08"))
	merged, ok := a.Merge(b)
	if !ok {
		t.Fatalf("expected adjacent ranges to merge")
	}
	if merged.String() != "[2024-06-01, 2024-06-08)" {
		t.Fatalf("unexpected merge result %s", merged)
	}
	if _, ok := a.Merge(Must(day("2024-07-01"), day("2024-07-02"))); ok {
		t.Fatalf("disjoint ranges must not merge")
	}
}

func TestParse(t *testing.T) {
	dr, err := Parse("2024-06-01", "2024-06-05")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if dr.Nights() != 4 {
		t.Fatalf("expected 4 nights, got %d", dr.Nights())
	}
	if _, err := Parse("2024-06-01", "junk"); err == nil {
		t.Fatalf("expected parse error")
	}
}
