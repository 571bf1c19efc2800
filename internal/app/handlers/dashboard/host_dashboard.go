package dashboard

import (
	"context"

	"chakastays/internal/app/dto"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/queries"
	"chakastays/internal/app/remote"
	"chakastays/internal/app/session"
	"chakastays/internal/domain/analytics"
	domainbooking "chakastays/internal/domain/booking"
	domainproperties "chakastays/internal/domain/properties"
	"chakastays/internal/domain/user"
)

const HostDashboardKey = "host.dashboard"

type HostDashboardQuery struct {
	Who session.Principal
}

func (q HostDashboardQuery) Key() string { return HostDashboardKey }

func (q HostDashboardQuery) Caller() session.Principal { return q.Who }

func (q HostDashboardQuery) RequiredRole() user.Role { return user.RoleHost }

// HostDashboardHandler aggregates the host's bookings into trailing monthly buckets.
type HostDashboardHandler struct {
	support.Gateway
	Options  analytics.Options
	Currency string
}

func (h *HostDashboardHandler) Handle(ctx context.Context, q HostDashboardQuery) (dto.HostDashboard, error) {
	host := domainproperties.HostID(q.Who.UserID)
	props, err := remote.Call(ctx, h.Remote, "properties.by_host", func(ctx context.Context) ([]*domainproperties.Property, error) {
		return h.Data.Properties().ByHost(ctx, host)
	})
	if err != nil {
		return dto.HostDashboard{}, err
	}
	bookings, err := remote.Call(ctx, h.Remote, "bookings.by_host", func(ctx context.Context) ([]*domainbooking.Booking, error) {
		return h.Data.Bookings().ByHost(ctx, host)
	})
	if err != nil {
		return dto.HostDashboard{}, err
	}
	summary := analytics.Summarize(h.Clock(), props, bookings, h.Options)
	mode := h.Options.Mode
	if mode == "" {
		mode = analytics.KeyYearMonth
	}
	return dto.MapHostDashboard(summary, h.Currency, mode), nil
}

var _ queries.Handler[HostDashboardQuery, dto.HostDashboard] = (*HostDashboardHandler)(nil)
