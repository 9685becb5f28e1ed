// Package notify persists user notifications, caches unread counts, and hands
// email delivery off to the background queue.
package notify

import (
	"errors"
	"time"
)

// Notification is a user-visible event record.
type Notification struct {
	ID        int64
	UserID    int64
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

// ErrNotFound indicates the notification does not exist or belongs to another
// user. The two cases are indistinguishable on purpose.
var ErrNotFound = errors.New("notify: notification not found")
