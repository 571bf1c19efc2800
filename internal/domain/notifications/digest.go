package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// Feed is the remote side of a user's notification list.
type Feed interface {
	List(ctx context.Context, userID string) ([]Notification, error)
	MarkRead(ctx context.Context, userID string, id NotificationID) error
	MarkAllRead(ctx context.Context, userID string, ids []NotificationID) error
}

// Digest keeps a user's notifications and unread count. Mutations are applied locally
// first and rolled back, followed by a re-fetch, when the feed rejects them.
type Digest struct {
	mu     sync.Mutex
	userID string
	feed   Feed
	logger *slog.Logger
	items  []Notification
	unread int
}

func NewDigest(userID string, feed Feed, logger *slog.Logger) *Digest {
	return &Digest{userID: userID, feed: feed, logger: logger}
}

// Load replaces the local state with the feed's current list.
func (d *Digest) Load(ctx context.Context) ([]Notification, error) {
	items, err := d.feed.List(ctx, d.userID)
	if err != nil {
		return nil, err
	}
	items = append([]Notification(nil), items...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	d.mu.Lock()
	d.items = items
	d.unread = countUnread(items)
	d.mu.Unlock()
	return d.Items(), nil
}

// MarkRead returns the notification's link so the caller can navigate to it.
// Marking an already read item is a no-op that skips the feed.
func (d *Digest) MarkRead(ctx context.Context, id NotificationID) (string, error) {
	d.mu.Lock()
	idx := d.indexOf(id)
	if idx < 0 {
		d.mu.Unlock()
		return "", ErrNotificationNotFound
	}
	link := d.items[idx].Link
	if d.items[idx].Read {
		d.mu.Unlock()
		return link, nil
	}
	d.items[idx].Read = true
	d.decrement()
	d.mu.Unlock()

	if err := d.feed.MarkRead(ctx, d.userID, id); err != nil {
		d.rollback([]NotificationID{id})
		return "", d.refetch(ctx, err)
	}
	return link, nil
}

// MarkAllRead flips every unread item in one batched call.
func (d *Digest) MarkAllRead(ctx context.Context) error {
	d.mu.Lock()
	var ids []NotificationID
	for i := range d.items {
		if d.items[i].Read {
			continue
		}
		d.items[i].Read = true
		d.decrement()
		ids = append(ids, d.items[i].ID)
	}
	d.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}

	if err := d.feed.MarkAllRead(ctx, d.userID, ids); err != nil {
		d.rollback(ids)
		return d.refetch(ctx, err)
	}
	return nil
}

func (d *Digest) Unread() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unread
}

func (d *Digest) Items() []Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Notification(nil), d.items...)
}

func (d *Digest) UserID() string {
	return d.userID
}

func (d *Digest) rollback(ids []NotificationID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		idx := d.indexOf(id)
		if idx < 0 || !d.items[idx].Read {
			continue
		}
		d.items[idx].Read = false
		d.unread++
	}
}

// refetch resyncs with the feed after a failed mutation. The original failure is always returned.
func (d *Digest) refetch(ctx context.Context, cause error) error {
	if _, err := d.Load(ctx); err != nil {
		if d.logger != nil {
			d.logger.Warn("notification refetch failed", "user_id", d.userID, "error", err)
		}
		return errors.Join(cause, err)
	}
	return cause
}

func (d *Digest) indexOf(id NotificationID) int {
	for i := range d.items {
		if d.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Digest) decrement() {
	if d.unread > 0 {
		d.unread--
	}
}

func countUnread(items []Notification) int {
	var n int
	for _, item := range items {
		if !item.Read {
			n++
		}
	}
	return n
}
