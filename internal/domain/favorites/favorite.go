package favorites

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"chakastays/internal/domain/properties"
)

var (
	ErrUserRequired     = errors.New("favorites: user id required")
	ErrPropertyRequired = errors.New("favorites: property id required")
)

// Favorite marks a property for a user. The pair is unique.
type Favorite struct {
	UserID     string
	PropertyID properties.PropertyID
	CreatedAt  time.Time
}

func New(userID string, propertyID properties.PropertyID, now time.Time) (Favorite, error) {
	if strings.TrimSpace(userID) == "" {
		return Favorite{}, ErrUserRequired
	}
	if strings.TrimSpace(string(propertyID)) == "" {
		return Favorite{}, ErrPropertyRequired
	}
	return Favorite{UserID: userID, PropertyID: propertyID, CreatedAt: now.UTC()}, nil
}

type Repository interface {
	ByUser(ctx context.Context, userID string) ([]Favorite, error)
	// Add keeps the original CreatedAt when the pair already exists.
	Add(ctx context.Context, fav Favorite) error
	// Remove of an absent pair succeeds.
	Remove(ctx context.Context, userID string, propertyID properties.PropertyID) error
}

// SortNewestFirst orders favorites by creation time, newest first.
func SortNewestFirst(items []Favorite) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
