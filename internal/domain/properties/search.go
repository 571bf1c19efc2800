package properties

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// SearchSort defines a supported ordering.
type SearchSort string

const (
	SortByPriceAsc  SearchSort = "price_asc"
	SortByPriceDesc SearchSort = "price_desc"
	SortByRating    SearchSort = "rating_desc"
	SortByNewest    SearchSort = "newest"

	defaultSearchLimit = 24
	maxSearchLimit     = 60
)

// SearchParams describe catalog filters and paging options.
type SearchParams struct {
	City          string
	Country       string
	Query         string
	Amenities     []string
	MinGuests     int
	PriceMin      decimal.Decimal
	PriceMax      decimal.Decimal
	IncludeBanned bool
	Sort          SearchSort
	Limit         int
	Offset        int
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	n := p
	n.City = strings.ToLower(strings.TrimSpace(n.City))
	n.Country = strings.ToLower(strings.TrimSpace(n.Country))
	n.Query = strings.ToLower(strings.TrimSpace(n.Query))
	n.Amenities = NormalizeAmenities(n.Amenities)
	if n.MinGuests < 0 {
		n.MinGuests = 0
	}
	if n.PriceMin.IsNegative() {
		n.PriceMin = decimal.Zero
	}
	if n.PriceMax.IsPositive() && n.PriceMax.LessThan(n.PriceMin) {
		n.PriceMax = decimal.Zero
	}
	if n.Limit <= 0 {
		n.Limit = defaultSearchLimit
	}
	if n.Limit > maxSearchLimit {
		n.Limit = maxSearchLimit
	}
	if n.Offset < 0 {
		n.Offset = 0
	}
	switch n.Sort {
	case SortByPriceAsc, SortByPriceDesc, SortByRating, SortByNewest:
	default:
		n.Sort = SortByPriceAsc
	}
	return n
}

// Matches applies the filters of normalized params to a single property.
func (p SearchParams) Matches(property *Property) bool {
	if property == nil {
		return false
	}
	if property.Banned && !p.IncludeBanned {
		return false
	}
	if p.City != "" && !strings.EqualFold(property.Location.City, p.City) {
		return false
	}
	if p.Country != "" && !strings.EqualFold(property.Location.Country, p.Country) {
		return false
	}
	if p.Query != "" {
		haystack := strings.ToLower(strings.Join([]string{
			property.Title,
			property.Location.City,
			property.Location.Country,
			property.Location.Address,
		}, " "))
		if !strings.Contains(haystack, p.Query) {
			return false
		}
	}
	if p.MinGuests > 0 && property.Capacity.MaxGuests < p.MinGuests {
		return false
	}
	price := property.PricePerNight.Amount
	if p.PriceMin.IsPositive() && price.LessThan(p.PriceMin) {
		return false
	}
	if p.PriceMax.IsPositive() && price.GreaterThan(p.PriceMax) {
		return false
	}
	return hasAmenities(property.Amenities, p.Amenities)
}

// Sort orders properties in place according to normalized params.
func (p SearchParams) SortProperties(items []*Property) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch p.Sort {
		case SortByPriceDesc:
			return a.PricePerNight.Amount.GreaterThan(b.PricePerNight.Amount)
		case SortByRating:
			if a.Rating == b.Rating {
				return a.ReviewCount > b.ReviewCount
			}
			return a.Rating > b.Rating
		case SortByNewest:
			return a.CreatedAt.After(b.CreatedAt)
		default:
			return a.PricePerNight.Amount.LessThan(b.PricePerNight.Amount)
		}
	})
}

func hasAmenities(values, required []string) bool {
	if len(required) == 0 {
		return true
	}
	index := make(map[string]struct{}, len(values))
	for _, v := range values {
		index[strings.ToLower(v)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := index[r]; !ok {
			return false
		}
	}
	return true
}

// SearchResult wraps search hits with meta.
type SearchResult struct {
	Items []*Property
	Total int
}
