package admin

import (
	"context"
	"log/slog"
	"strings"

	"chakastays/internal/app/dataservice"
	"chakastays/internal/app/dto"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/outbox"
	"chakastays/internal/app/remote"
	"chakastays/internal/app/session"
	domainproperties "chakastays/internal/domain/properties"
	"chakastays/internal/domain/user"
)

const (
	BanPropertyKey    = "admin.properties.ban"
	UnbanPropertyKey  = "admin.properties.unban"
	RemovePropertyKey = "admin.properties.remove"
)

type BanPropertyCommand struct {
	Who        session.Principal
	PropertyID string `json:"property_id" validate:"required"`
	Reason     string `json:"reason" validate:"max=500"`
}

func (c BanPropertyCommand) Key() string { return BanPropertyKey }

func (c BanPropertyCommand) Caller() session.Principal { return c.Who }

func (c BanPropertyCommand) RequiredRole() user.Role { return user.RoleAdmin }

type UnbanPropertyCommand struct {
	Who        session.Principal
	PropertyID string `json:"property_id" validate:"required"`
}

func (c UnbanPropertyCommand) Key() string { return UnbanPropertyKey }

func (c UnbanPropertyCommand) Caller() session.Principal { return c.Who }

func (c UnbanPropertyCommand) RequiredRole() user.Role { return user.RoleAdmin }

type RemovePropertyCommand struct {
	Who        session.Principal
	PropertyID string `json:"property_id" validate:"required"`
}

func (c RemovePropertyCommand) Key() string { return RemovePropertyKey }

func (c RemovePropertyCommand) Caller() session.Principal { return c.Who }

func (c RemovePropertyCommand) RequiredRole() user.Role { return user.RoleAdmin }

type RemovalResult struct {
	PropertyID        string   `json:"property_id"`
	CancelledBookings []string `json:"cancelled_bookings"`
}

// Handlers run the moderation procedures. The role gate on the commands is a shortcut;
// the procedures decide.
type Handlers struct {
	support.Gateway
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
}

func (h *Handlers) Ban(ctx context.Context, cmd BanPropertyCommand) (*dto.PropertyDetail, error) {
	id := domainproperties.PropertyID(strings.TrimSpace(cmd.PropertyID))
	p, err := remote.Call(ctx, h.Remote, "procedures.ban_property", func(ctx context.Context) (*domainproperties.Property, error) {
		return h.Data.Procedures().BanProperty(ctx, cmd.Who.Actor(), id, cmd.Reason, h.Clock())
	})
	if err != nil {
		return nil, err
	}
	return h.finish(ctx, p, "property banned", cmd.Who)
}

func (h *Handlers) Unban(ctx context.Context, cmd UnbanPropertyCommand) (*dto.PropertyDetail, error) {
	id := domainproperties.PropertyID(strings.TrimSpace(cmd.PropertyID))
	p, err := remote.Call(ctx, h.Remote, "procedures.unban_property", func(ctx context.Context) (*domainproperties.Property, error) {
		return h.Data.Procedures().UnbanProperty(ctx, cmd.Who.Actor(), id, h.Clock())
	})
	if err != nil {
		return nil, err
	}
	return h.finish(ctx, p, "property unbanned", cmd.Who)
}

func (h *Handlers) Remove(ctx context.Context, cmd RemovePropertyCommand) (*RemovalResult, error) {
	id := domainproperties.PropertyID(strings.TrimSpace(cmd.PropertyID))
	removal, err := remote.Call(ctx, h.Remote, "procedures.remove_property", func(ctx context.Context) (*dataservice.RemovalResult, error) {
		return h.Data.Procedures().RemoveProperty(ctx, cmd.Who.Actor(), id, h.Clock())
	})
	if err != nil {
		return nil, err
	}
	var recorders []outbox.Recorder
	if removal.Property != nil {
		recorders = append(recorders, removal.Property)
	}
	out := &RemovalResult{PropertyID: string(id), CancelledBookings: make([]string, 0, len(removal.Cancelled))}
	for _, b := range removal.Cancelled {
		recorders = append(recorders, b)
		out.CancelledBookings = append(out.CancelledBookings, string(b.ID))
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, recorders...); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("property removed", "property_id", id, "cancelled", len(out.CancelledBookings), "by", cmd.Who.UserID)
	}
	return out, nil
}

func (h *Handlers) finish(ctx context.Context, p *domainproperties.Property, msg string, who session.Principal) (*dto.PropertyDetail, error) {
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, p); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info(msg, "property_id", p.ID, "by", who.UserID)
	}
	result := dto.MapPropertyDetail(p)
	return &result, nil
}
