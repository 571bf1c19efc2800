package favorites

import (
	"errors"
	"testing"
	"time"
)

func TestNewRequiresBothIDs(t *testing.T) {
	if _, err := New("", "p1", time.Now()); !errors.Is(err, ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}
	if _, err := New("u1", " ", time.Now()); !errors.Is(err, ErrPropertyRequired) {
		t.Fatalf("expected ErrPropertyRequired, got %v", err)
	}
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	items := []Favorite{
		{UserID: "u1", PropertyID: "old", CreatedAt: base},
		{UserID: "u1", PropertyID: "new", CreatedAt: base.Add(48 * time.Hour)},
		{UserID: "u1", PropertyID: "mid", CreatedAt: base.Add(24 * time.Hour)},
	}
	SortNewestFirst(items)
	if items[0].PropertyID != "new" || items[1].PropertyID != "mid" || items[2].PropertyID != "old" {
		t.Fatalf("unexpected order %v", items)
	}
}
