package properties

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"chakastays/internal/app/dto"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/queries"
	"chakastays/internal/app/remote"
	"chakastays/internal/app/session"
	domainproperties "chakastays/internal/domain/properties"
	"chakastays/internal/domain/user"
)

const (
	SearchPropertiesKey   = "properties.search"
	GetPropertyKey        = "properties.get"
	ListHostPropertiesKey = "host.properties.list"
)

// SearchPropertiesQuery describes catalog filters. Banned properties never match.
type SearchPropertiesQuery struct {
	City      string
	Country   string
	Text      string
	Amenities []string
	MinGuests int `json:"guests" validate:"min=0"`
	PriceMin  decimal.Decimal
	PriceMax  decimal.Decimal
	Sort      string
	Limit     int `json:"limit" validate:"min=0,max=60"`
	Offset    int `json:"offset" validate:"min=0"`
}

func (q SearchPropertiesQuery) Key() string { return SearchPropertiesKey }

type SearchPropertiesHandler struct {
	support.Gateway
}

func (h *SearchPropertiesHandler) Handle(ctx context.Context, q SearchPropertiesQuery) (dto.PropertyCollection, error) {
	params := domainproperties.SearchParams{
		City:      q.City,
		Country:   q.Country,
		Query:     q.Text,
		Amenities: append([]string(nil), q.Amenities...),
		MinGuests: q.MinGuests,
		PriceMin:  q.PriceMin,
		PriceMax:  q.PriceMax,
		Sort:      domainproperties.SearchSort(q.Sort),
		Limit:     q.Limit,
		Offset:    q.Offset,
	}.Normalized()
	result, err := remote.Call(ctx, h.Remote, "properties.search", func(ctx context.Context) (domainproperties.SearchResult, error) {
		return h.Data.Properties().Search(ctx, params)
	})
	if err != nil {
		return dto.PropertyCollection{}, err
	}
	return dto.MapPropertyCollection(result.Items, result.Total), nil
}

type GetPropertyQuery struct {
	Who        session.Principal
	PropertyID string `json:"property_id" validate:"required"`
}

func (q GetPropertyQuery) Key() string { return GetPropertyKey }

// GetPropertyHandler hides banned properties from everyone but their host and admins.
type GetPropertyHandler struct {
	support.Gateway
}

func (h *GetPropertyHandler) Handle(ctx context.Context, q GetPropertyQuery) (dto.PropertyDetail, error) {
	p, err := h.Property(ctx, domainproperties.PropertyID(strings.TrimSpace(q.PropertyID)))
	if err != nil {
		return dto.PropertyDetail{}, err
	}
	if p.Banned && !p.OwnedBy(domainproperties.HostID(q.Who.UserID)) && !q.Who.HasRole(user.RoleAdmin) {
		return dto.PropertyDetail{}, support.Hidden(GetPropertyKey)
	}
	return dto.MapPropertyDetail(p), nil
}

type ListHostPropertiesQuery struct {
	Who session.Principal
}

func (q ListHostPropertiesQuery) Key() string { return ListHostPropertiesKey }

func (q ListHostPropertiesQuery) Caller() session.Principal { return q.Who }

func (q ListHostPropertiesQuery) RequiredRole() user.Role { return user.RoleHost }

type ListHostPropertiesHandler struct {
	support.Gateway
}

func (h *ListHostPropertiesHandler) Handle(ctx context.Context, q ListHostPropertiesQuery) (dto.PropertyCollection, error) {
	items, err := remote.Call(ctx, h.Remote, "properties.by_host", func(ctx context.Context) ([]*domainproperties.Property, error) {
		return h.Data.Properties().ByHost(ctx, domainproperties.HostID(q.Who.UserID))
	})
	if err != nil {
		return dto.PropertyCollection{}, err
	}
	return dto.MapPropertyCollection(items, len(items)), nil
}

var _ queries.Handler[SearchPropertiesQuery, dto.PropertyCollection] = (*SearchPropertiesHandler)(nil)
var _ queries.Handler[GetPropertyQuery, dto.PropertyDetail] = (*GetPropertyHandler)(nil)
var _ queries.Handler[ListHostPropertiesQuery, dto.PropertyCollection] = (*ListHostPropertiesHandler)(nil)
