// Package members owns the membership registry and the invite/join-request
// lifecycle that mutates it.
package members

import (
	"errors"
	"time"
)

// RequestKind distinguishes admin-initiated invites from self-service join
// requests. Both share the same row shape and state machine.
type RequestKind string

// Request kinds.
const (
	KindInvite      RequestKind = "invite"
	KindJoinRequest RequestKind = "request"
)

// RequestStatus is the lifecycle state of a membership request. Pending is
// the only mutable state; accepted and rejected rows are immutable.
type RequestStatus string

// Request statuses.
const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

// MembershipRequest is a pending or resolved invite / join request.
type MembershipRequest struct {
	ID        int64
	ProjectID int64
	UserID    int64
	Kind      RequestKind
	Status    RequestStatus
	CreatedAt time.Time
}

// Member is a membership row joined with user and role names for listings.
type Member struct {
	UserID    int64
	ProjectID int64
	RoleID    int64
	Username  string
	Email     string
	RoleName  string
}

// RequestDetail is a membership request joined with requester info.
type RequestDetail struct {
	ID        int64
	ProjectID int64
	UserID    int64
	Username  string
	Email     string
	Status    RequestStatus
	CreatedAt time.Time
}

// Domain errors.
var (
	ErrNotFound       = errors.New("members: not found")
	ErrUserNotFound   = errors.New("members: user not found")
	ErrRoleNotFound   = errors.New("members: role not found for this project")
	ErrAlreadyMember  = errors.New("members: user already a member")
	ErrRequestPending = errors.New("members: request already pending")
)
