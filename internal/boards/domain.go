// Package boards owns the per-project board columns items move through.
package boards

import (
	"errors"
	"time"
)

// Column is a named stage on a project board.
type Column struct {
	ID        int64
	ProjectID int64
	Name      string
	Position  int
	CreatedAt time.Time
}

// Domain errors.
var (
	ErrNotFound    = errors.New("boards: column not found")
	ErrInvalidName = errors.New("boards: column name must be 1-60 characters")
)
