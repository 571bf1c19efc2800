package properties

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"chakastays/internal/app/commands"
	"chakastays/internal/app/dto"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/outbox"
	"chakastays/internal/app/remote"
	"chakastays/internal/app/session"
	domainproperties "chakastays/internal/domain/properties"
	"chakastays/internal/domain/shared/money"
	"chakastays/internal/domain/user"
)

const (
	CreatePropertyKey = "host.properties.create"
	UpdatePropertyKey = "host.properties.update"
)

// PropertyInput is the host-editable part of a property.
type PropertyInput struct {
	Title         string   `json:"title" validate:"required,max=140"`
	Description   string   `json:"description" validate:"max=5000"`
	Address       string   `json:"address"`
	City          string   `json:"city" validate:"required"`
	Country       string   `json:"country" validate:"required"`
	PricePerNight string   `json:"price_per_night" validate:"required,numeric"`
	MaxGuests     int      `json:"max_guests" validate:"min=1"`
	Bedrooms      int      `json:"bedrooms" validate:"min=0"`
	Beds          int      `json:"beds" validate:"min=0"`
	Baths         float64  `json:"baths" validate:"min=0"`
	Amenities     []string `json:"amenities"`
}

type CreatePropertyCommand struct {
	Who session.Principal
	PropertyInput
}

func (c CreatePropertyCommand) Key() string { return CreatePropertyKey }

func (c CreatePropertyCommand) Caller() session.Principal { return c.Who }

func (c CreatePropertyCommand) RequiredRole() user.Role { return user.RoleHost }

type UpdatePropertyCommand struct {
	Who        session.Principal
	PropertyID string `json:"property_id" validate:"required"`
	PropertyInput
}

func (c UpdatePropertyCommand) Key() string { return UpdatePropertyKey }

func (c UpdatePropertyCommand) Caller() session.Principal { return c.Who }

func (c UpdatePropertyCommand) RequiredRole() user.Role { return user.RoleHost }

type CreatePropertyHandler struct {
	support.Gateway
	Currency string
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Logger   *slog.Logger
}

func (h *CreatePropertyHandler) Handle(ctx context.Context, cmd CreatePropertyCommand) (*dto.PropertyDetail, error) {
	price, err := money.Parse(cmd.PricePerNight, h.Currency)
	if err != nil {
		return nil, support.Invalid(err)
	}
	p, err := domainproperties.NewProperty(domainproperties.CreateParams{
		ID:            domainproperties.PropertyID(uuid.NewString()),
		Host:          domainproperties.HostID(cmd.Who.UserID),
		Title:         cmd.Title,
		Description:   cmd.Description,
		Location:      cmd.location(),
		PricePerNight: price,
		Capacity:      cmd.capacity(),
		Amenities:     cmd.Amenities,
		Now:           h.Clock(),
	})
	if err != nil {
		return nil, support.Invalid(err)
	}
	if err := remote.Do(ctx, h.Remote, "properties.save", func(ctx context.Context) error {
		return h.Data.Properties().Save(ctx, p)
	}); err != nil {
		return nil, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, p); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("property created", "property_id", p.ID, "host_id", p.Host)
	}
	result := dto.MapPropertyDetail(p)
	return &result, nil
}

type UpdatePropertyHandler struct {
	support.Gateway
	Logger *slog.Logger
}

func (h *UpdatePropertyHandler) Handle(ctx context.Context, cmd UpdatePropertyCommand) (*dto.PropertyDetail, error) {
	p, err := h.Property(ctx, domainproperties.PropertyID(strings.TrimSpace(cmd.PropertyID)))
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(domainproperties.HostID(cmd.Who.UserID)) {
		return nil, support.NotOwner(UpdatePropertyKey)
	}
	price, err := money.Parse(cmd.PricePerNight, p.PricePerNight.Currency)
	if err != nil {
		return nil, support.Invalid(err)
	}
	if err := p.Update(domainproperties.UpdateParams{
		Title:         cmd.Title,
		Description:   cmd.Description,
		Location:      cmd.location(),
		PricePerNight: price,
		Capacity:      cmd.capacity(),
		Amenities:     cmd.Amenities,
		Now:           h.Clock(),
	}); err != nil {
		return nil, support.Invalid(err)
	}
	if err := remote.Do(ctx, h.Remote, "properties.save", func(ctx context.Context) error {
		return h.Data.Properties().Save(ctx, p)
	}); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("property updated", "property_id", p.ID)
	}
	result := dto.MapPropertyDetail(p)
	return &result, nil
}

func (in PropertyInput) location() domainproperties.Location {
	return domainproperties.Location{Address: in.Address, City: in.City, Country: in.Country}
}

func (in PropertyInput) capacity() domainproperties.Capacity {
	return domainproperties.Capacity{
		MaxGuests: in.MaxGuests,
		Bedrooms:  in.Bedrooms,
		Beds:      in.Beds,
		Baths:     in.Baths,
	}
}

var _ commands.Handler[CreatePropertyCommand, *dto.PropertyDetail] = (*CreatePropertyHandler)(nil)
var _ commands.Handler[UpdatePropertyCommand, *dto.PropertyDetail] = (*UpdatePropertyHandler)(nil)
