// Package items owns work items (tasks, bugs, epics, features), their
// comments, and the ownership data the authorization fallback consults.
package items

import (
	"errors"
	"time"
)

// Item types.
const (
	TypeTask    = "task"
	TypeBug     = "bug"
	TypeEpic    = "epic"
	TypeFeature = "feature"
)

// Item statuses. Status mirrors the board column stage.
const (
	StatusTodo       = "todo"
	StatusInProgress = "inprogress"
	StatusInReview   = "inreview"
	StatusDone       = "done"
)

// Item priorities.
const (
	PriorityLow      = "Low"
	PriorityMedium   = "Medium"
	PriorityHigh     = "High"
	PriorityCritical = "Critical"
)

// MaxTitleLength bounds item titles.
const MaxTitleLength = 120

// Item is a unit of tracked work within a project.
type Item struct {
	ID          int64
	ProjectID   int64
	Key         string
	Title       string
	Description string
	Type        string
	Status      string
	Priority    string
	Severity    string
	ColumnID    *int64
	ReporterID  int64
	AssigneeID  *int64
	ParentID    *int64
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment is a remark on an item. Its owner is its author.
type Comment struct {
	ID        int64
	ItemID    int64
	AuthorID  int64
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemUpdate carries partial changes; nil fields are left untouched.
type ItemUpdate struct {
	Title       *string
	Description *string
	Type        *string
	Status      *string
	Priority    *string
	Severity    *string
	ColumnID    *int64
	AssigneeID  *int64
	ParentID    *int64
	DueDate     *time.Time
}

// ListFilter narrows item listings.
type ListFilter struct {
	Type   string
	Limit  int
	Offset int
}

// Domain errors.
var (
	ErrNotFound        = errors.New("items: not found")
	ErrCommentNotFound = errors.New("items: comment not found")
	ErrInvalidType     = errors.New("items: invalid type")
	ErrInvalidStatus   = errors.New("items: invalid status")
	ErrInvalidPriority = errors.New("items: invalid priority")
	ErrInvalidTitle    = errors.New("items: title must be 1-120 characters")
	ErrEmptyComment    = errors.New("items: comment body required")
)

var validTypes = map[string]struct{}{
	TypeTask: {}, TypeBug: {}, TypeEpic: {}, TypeFeature: {},
}

var validStatuses = map[string]struct{}{
	StatusTodo: {}, StatusInProgress: {}, StatusInReview: {}, StatusDone: {},
}

var validPriorities = map[string]struct{}{
	PriorityLow: {}, PriorityMedium: {}, PriorityHigh: {}, PriorityCritical: {},
}

// ValidType reports whether t is a known item type.
func ValidType(t string) bool {
	_, ok := validTypes[t]
	return ok
}

// ValidStatus reports whether s is a known item status.
func ValidStatus(s string) bool {
	_, ok := validStatuses[s]
	return ok
}

// ValidPriority reports whether p is a known item priority.
func ValidPriority(p string) bool {
	_, ok := validPriorities[p]
	return ok
}
