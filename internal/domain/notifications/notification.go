package notifications

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotificationNotFound = errors.New("notifications: not found")
	ErrRecipientRequired    = errors.New("notifications: recipient required")
	ErrTitleRequired        = errors.New("notifications: title required")
	ErrIDRequired           = errors.New("notifications: id required")
)

type NotificationID string

type Type string

const (
	TypeBookingCreated   Type = "booking_created"
	TypeBookingReceived  Type = "booking_received"
	TypeBookingCancelled Type = "booking_cancelled"
	TypePropertyBanned   Type = "property_banned"
	TypePropertyUnbanned Type = "property_unbanned"
	TypeSystem           Type = "system"
)

type Notification struct {
	ID        NotificationID
	UserID    string
	Type      Type
	Title     string
	Message   string
	Link      string
	Read      bool
	CreatedAt time.Time
}

type CreateParams struct {
	ID      NotificationID
	UserID  string
	Type    Type
	Title   string
	Message string
	Link    string
	Now     time.Time
}

func New(params CreateParams) (Notification, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return Notification{}, ErrIDRequired
	}
	if strings.TrimSpace(params.UserID) == "" {
		return Notification{}, ErrRecipientRequired
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return Notification{}, ErrTitleRequired
	}
	kind := params.Type
	if kind == "" {
		kind = TypeSystem
	}
	return Notification{
		ID:        params.ID,
		UserID:    params.UserID,
		Type:      kind,
		Title:     title,
		Message:   strings.TrimSpace(params.Message),
		Link:      strings.TrimSpace(params.Link),
		CreatedAt: params.Now.UTC(),
	}, nil
}

// Repository is the data-service view of notifications.
type Repository interface {
	ByUser(ctx context.Context, userID string) ([]Notification, error)
	MarkRead(ctx context.Context, userID string, id NotificationID) error
	// MarkAllRead flips every listed notification or none of them.
	MarkAllRead(ctx context.Context, userID string, ids []NotificationID) error
	Insert(ctx context.Context, n Notification) error
}
