// Package projects owns project records and the creation transaction that
// seeds roles, board columns, and the creator's admin membership.
package projects

import (
	"errors"
	"time"
)

// Project represents a tracked project.
type Project struct {
	ID          int64
	Name        string
	Description string
	AdminID     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Progress summarises item completion for a project board.
type Progress struct {
	Total      int
	Completed  int
	InProgress int
	Todo       int
}

// DashboardStats aggregates the caller's workload across projects.
type DashboardStats struct {
	ProjectCount int
	TaskCount    int
}

// DefaultColumns are the board columns created for every new project.
var DefaultColumns = []string{"To Do", "In Progress", "In Review", "Done"}

// Domain errors.
var (
	ErrNotFound     = errors.New("projects: not found")
	ErrUserNotFound = errors.New("projects: user not found")
)
