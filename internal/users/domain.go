package users

import (
	"errors"
	"time"
)

// User represents a user account. Accounts are provisioned by the external
// identity system; this service only reads them.
type User struct {
	ID        int64
	Username  string
	Email     string
	IsActive  bool
	CreatedAt time.Time
}

// ErrNotFound indicates the user does not exist.
var ErrNotFound = errors.New("users: not found")
