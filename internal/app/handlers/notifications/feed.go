package notifications

import (
	"context"

	"chakastays/internal/app/remote"
	domainnotifications "chakastays/internal/domain/notifications"
)

// RemoteFeed exposes the notification store to a Digest with every call bounded by Remote.
type RemoteFeed struct {
	Repo   domainnotifications.Repository
	Remote *remote.Caller
}

func (f RemoteFeed) List(ctx context.Context, userID string) ([]domainnotifications.Notification, error) {
	return remote.Call(ctx, f.Remote, "notifications.by_user", func(ctx context.Context) ([]domainnotifications.Notification, error) {
		return f.Repo.ByUser(ctx, userID)
	})
}

func (f RemoteFeed) MarkRead(ctx context.Context, userID string, id domainnotifications.NotificationID) error {
	return remote.Do(ctx, f.Remote, "notifications.mark_read", func(ctx context.Context) error {
		return f.Repo.MarkRead(ctx, userID, id)
	})
}

func (f RemoteFeed) MarkAllRead(ctx context.Context, userID string, ids []domainnotifications.NotificationID) error {
	return remote.Do(ctx, f.Remote, "notifications.mark_all_read", func(ctx context.Context) error {
		return f.Repo.MarkAllRead(ctx, userID, ids)
	})
}

var _ domainnotifications.Feed = RemoteFeed{}
