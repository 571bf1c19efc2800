package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"chakastays/internal/app/apperr"
	"chakastays/internal/app/dto"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/session"
	domainnotifications "chakastays/internal/domain/notifications"
)

const (
	ListNotificationsKey = "me.notifications.list"
	MarkReadKey          = "me.notifications.read"
	MarkAllReadKey       = "me.notifications.read_all"
)

type ListNotificationsQuery struct {
	Who session.Principal
}

func (q ListNotificationsQuery) Key() string { return ListNotificationsKey }

func (q ListNotificationsQuery) Caller() session.Principal { return q.Who }

type MarkReadCommand struct {
	Who            session.Principal
	NotificationID string `json:"notification_id" validate:"required"`
}

func (c MarkReadCommand) Key() string { return MarkReadKey }

func (c MarkReadCommand) Caller() session.Principal { return c.Who }

type MarkAllReadCommand struct {
	Who session.Principal
}

func (c MarkAllReadCommand) Key() string { return MarkAllReadKey }

func (c MarkAllReadCommand) Caller() session.Principal { return c.Who }

// Handlers serves the notification feed. Each request works on a digest loaded fresh
// from the store, so no state is kept between requests.
type Handlers struct {
	support.Gateway
	Logger *slog.Logger
}

func (h *Handlers) digest(ctx context.Context, userID string) (*domainnotifications.Digest, error) {
	d := domainnotifications.NewDigest(userID, RemoteFeed{Repo: h.Data.Notifications(), Remote: h.Remote}, h.Logger)
	if _, err := d.Load(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (h *Handlers) List(ctx context.Context, q ListNotificationsQuery) (dto.NotificationFeed, error) {
	d, err := h.digest(ctx, q.Who.UserID)
	if err != nil {
		return dto.NotificationFeed{}, err
	}
	return dto.MapNotificationFeed(d.Items(), d.Unread()), nil
}

func (h *Handlers) MarkRead(ctx context.Context, cmd MarkReadCommand) (*dto.MarkReadResult, error) {
	d, err := h.digest(ctx, cmd.Who.UserID)
	if err != nil {
		return nil, err
	}
	id := domainnotifications.NotificationID(strings.TrimSpace(cmd.NotificationID))
	link, err := d.MarkRead(ctx, id)
	if err != nil {
		if errors.Is(err, domainnotifications.ErrNotificationNotFound) {
			return nil, apperr.Remote(MarkReadKey, apperr.CodeNotFound, err)
		}
		return nil, err
	}
	return &dto.MarkReadResult{ID: string(id), Link: link, Unread: d.Unread()}, nil
}

func (h *Handlers) MarkAllRead(ctx context.Context, cmd MarkAllReadCommand) (*dto.NotificationFeed, error) {
	d, err := h.digest(ctx, cmd.Who.UserID)
	if err != nil {
		return nil, err
	}
	if err := d.MarkAllRead(ctx); err != nil {
		return nil, err
	}
	feed := dto.MapNotificationFeed(d.Items(), d.Unread())
	return &feed, nil
}
