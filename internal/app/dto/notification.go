package dto

import (
	"time"

	domainnotifications "chakastays/internal/domain/notifications"
)

type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationFeed struct {
	Items  []Notification `json:"items"`
	Unread int            `json:"unread"`
}

// MarkReadResult tells the client where to navigate after opening a notification.
type MarkReadResult struct {
	ID     string `json:"id"`
	Link   string `json:"link,omitempty"`
	Unread int    `json:"unread"`
}

func MapNotificationFeed(items []domainnotifications.Notification, unread int) NotificationFeed {
	out := NotificationFeed{Items: make([]Notification, 0, len(items)), Unread: unread}
	for _, n := range items {
		out.Items = append(out.Items, Notification{
			ID:        string(n.ID),
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			Link:      n.Link,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
