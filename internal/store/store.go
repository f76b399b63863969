package store

import (
	"context"
	"time"
)

// Notification is a persisted notification-center entry. Creating one is
// what triggers the realtime `notification` event for its user; the
// stored record itself is the durable copy a client fetches on page load.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Type      string // "info", "success", "warning", "error", "system", "reward", "coupon", "tier_change", "points"
	Data      map[string]any
	ReadAt    *time.Time
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Read reports whether the notification has been marked read.
func (n *Notification) Read() bool {
	return n.ReadAt != nil
}

// ListOpts controls filtering and pagination for notification queries.
type ListOpts struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationStore is the interface for persisting and querying
// notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *Notification) error
	GetNotification(ctx context.Context, id string) (*Notification, error)
	ListNotifications(ctx context.Context, opts ListOpts) ([]*Notification, error)
	MarkRead(ctx context.Context, userID, id string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	TotalCount(ctx context.Context) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
