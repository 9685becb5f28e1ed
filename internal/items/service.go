package items

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/apslhvsl/jira-clone/internal/rbac"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Insert(ctx context.Context, it Item) (Item, error)
	Get(ctx context.Context, id int64) (Item, error)
	List(ctx context.Context, projectID int64, filter ListFilter) ([]Item, error)
	ListChildren(ctx context.Context, parentID int64) ([]Item, error)
	Update(ctx context.Context, id int64, upd ItemUpdate) (Item, error)
	Delete(ctx context.Context, id int64) error
	InsertComment(ctx context.Context, itemID, authorID int64, body string) (Comment, error)
	GetComment(ctx context.Context, commentID int64) (Comment, int64, error)
	ListComments(ctx context.Context, itemID int64) ([]Comment, error)
	UpdateComment(ctx context.Context, commentID int64, body string) (Comment, error)
	DeleteComment(ctx context.Context, commentID int64) error
}

// Notifier records a user-visible event after the triggering write committed.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message string) error
}

// Recorder appends activity log entries.
type Recorder interface {
	Record(ctx context.Context, userID, projectID, itemID int64, action string) error
}

// Authorizer evaluates the own-resource fallback for comment mutations, where
// the owner is the comment's author rather than the enclosing item's.
type Authorizer interface {
	AuthorizeOwned(ctx context.Context, userID, projectID int64, action, ownAction string, owners rbac.Ownership) error
}

// Service wraps item and comment business rules.
type Service struct {
	repo     RepositoryPort
	notifier Notifier
	recorder Recorder
	authz    Authorizer
	logger   *slog.Logger
}

// NewService constructs an items service.
func NewService(repo RepositoryPort, notifier Notifier, recorder Recorder, authz Authorizer, logger *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, recorder: recorder, authz: authz, logger: logger}
}

// CreateInput carries the fields of a new item.
type CreateInput struct {
	Title       string
	Description string
	Type        string
	Status      string
	Priority    string
	Severity    string
	ColumnID    *int64
	AssigneeID  *int64
	ParentID    *int64
	DueDate     *time.Time
}

// Create validates and persists a new item, notifies the assignee, and logs
// the activity.
func (s *Service) Create(ctx context.Context, reporterID, projectID int64, in CreateInput) (Item, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || utf8.RuneCountInString(title) > MaxTitleLength {
		return Item{}, ErrInvalidTitle
	}
	if in.Type == "" {
		in.Type = TypeTask
	}
	if !ValidType(in.Type) {
		return Item{}, ErrInvalidType
	}
	if in.Status == "" {
		in.Status = StatusTodo
	}
	if !ValidStatus(in.Status) {
		return Item{}, ErrInvalidStatus
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !ValidPriority(in.Priority) {
		return Item{}, ErrInvalidPriority
	}

	created, err := s.repo.Insert(ctx, Item{
		ProjectID:   projectID,
		Key:         newItemKey(),
		Title:       title,
		Description: in.Description,
		Type:        in.Type,
		Status:      in.Status,
		Priority:    in.Priority,
		Severity:    in.Severity,
		ColumnID:    in.ColumnID,
		ReporterID:  reporterID,
		AssigneeID:  in.AssigneeID,
		ParentID:    in.ParentID,
		DueDate:     in.DueDate,
	})
	if err != nil {
		return Item{}, err
	}

	s.record(ctx, reporterID, projectID, created.ID, fmt.Sprintf("created %s %q", created.Type, created.Title))
	if created.AssigneeID != nil && *created.AssigneeID != reporterID {
		s.notify(ctx, *created.AssigneeID, fmt.Sprintf("You were assigned to %q.", created.Title))
	}
	return created, nil
}

// Get fetches an item.
func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	return s.repo.Get(ctx, id)
}

// List returns a project's items.
func (s *Service) List(ctx context.Context, projectID int64, filter ListFilter) ([]Item, error) {
	if filter.Type != "" && !ValidType(filter.Type) {
		return nil, ErrInvalidType
	}
	return s.repo.List(ctx, projectID, filter)
}

// Update applies partial changes, notifies a newly assigned user, and logs
// the activity.
func (s *Service) Update(ctx context.Context, actorID, itemID int64, upd ItemUpdate) (Item, error) {
	if upd.Title != nil {
		trimmed := strings.TrimSpace(*upd.Title)
		if trimmed == "" || utf8.RuneCountInString(trimmed) > MaxTitleLength {
			return Item{}, ErrInvalidTitle
		}
		upd.Title = &trimmed
	}
	if upd.Type != nil && !ValidType(*upd.Type) {
		return Item{}, ErrInvalidType
	}
	if upd.Status != nil && !ValidStatus(*upd.Status) {
		return Item{}, ErrInvalidStatus
	}
	if upd.Priority != nil && !ValidPriority(*upd.Priority) {
		return Item{}, ErrInvalidPriority
	}

	before, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	updated, err := s.repo.Update(ctx, itemID, upd)
	if err != nil {
		return Item{}, err
	}

	s.record(ctx, actorID, updated.ProjectID, updated.ID, fmt.Sprintf("updated %q", updated.Title))
	if reassigned(before.AssigneeID, updated.AssigneeID) && *updated.AssigneeID != actorID {
		s.notify(ctx, *updated.AssigneeID, fmt.Sprintf("You were assigned to %q.", updated.Title))
	}
	return updated, nil
}

// Delete removes an item and logs the activity.
func (s *Service) Delete(ctx context.Context, actorID, itemID int64) error {
	it, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, itemID); err != nil {
		return err
	}
	s.record(ctx, actorID, it.ProjectID, it.ID, fmt.Sprintf("deleted %s %q", it.Type, it.Title))
	return nil
}

// AddComment appends a comment to an item and notifies the item's reporter
// and assignee, skipping the commenting user.
func (s *Service) AddComment(ctx context.Context, authorID, itemID int64, body string) (Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Comment{}, ErrEmptyComment
	}
	it, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return Comment{}, err
	}
	c, err := s.repo.InsertComment(ctx, itemID, authorID, body)
	if err != nil {
		return Comment{}, err
	}
	s.record(ctx, authorID, it.ProjectID, it.ID, fmt.Sprintf("commented on %q", it.Title))
	for _, target := range commentTargets(it, authorID) {
		s.notify(ctx, target, fmt.Sprintf("New comment on %q.", it.Title))
	}
	return c, nil
}

// commentTargets returns the item's reporter and assignee minus the commenting
// user, each at most once.
func commentTargets(it Item, authorID int64) []int64 {
	var targets []int64
	if it.ReporterID != authorID {
		targets = append(targets, it.ReporterID)
	}
	if it.AssigneeID != nil && *it.AssigneeID != authorID && *it.AssigneeID != it.ReporterID {
		targets = append(targets, *it.AssigneeID)
	}
	return targets
}

// CreateSubtask creates an item parented to an existing one. The subtask
// lives in the parent's project regardless of the route it arrived through.
func (s *Service) CreateSubtask(ctx context.Context, reporterID, parentID int64, in CreateInput) (Item, error) {
	parent, err := s.repo.Get(ctx, parentID)
	if err != nil {
		return Item{}, err
	}
	in.ParentID = &parent.ID
	return s.Create(ctx, reporterID, parent.ProjectID, in)
}

// ListSubtasks returns an item's children.
func (s *Service) ListSubtasks(ctx context.Context, parentID int64) ([]Item, error) {
	if _, err := s.repo.Get(ctx, parentID); err != nil {
		return nil, err
	}
	return s.repo.ListChildren(ctx, parentID)
}

// ListComments returns an item's comments.
func (s *Service) ListComments(ctx context.Context, itemID int64) ([]Comment, error) {
	if _, err := s.repo.Get(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, itemID)
}

// EditComment replaces a comment body. The caller must hold the broad edit
// permission or the own-comment permission as the comment's author.
func (s *Service) EditComment(ctx context.Context, actorID, commentID int64, body string) (Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Comment{}, ErrEmptyComment
	}
	existing, projectID, err := s.repo.GetComment(ctx, commentID)
	if err != nil {
		return Comment{}, err
	}
	owners := rbac.Ownership{ReporterID: existing.AuthorID}
	if err := s.authz.AuthorizeOwned(ctx, actorID, projectID, rbac.ActionEditAnyComment, rbac.ActionEditOwnComment, owners); err != nil {
		return Comment{}, err
	}
	return s.repo.UpdateComment(ctx, commentID, body)
}

// DeleteComment removes a comment under the same ownership rule as EditComment.
func (s *Service) DeleteComment(ctx context.Context, actorID, commentID int64) error {
	existing, projectID, err := s.repo.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	owners := rbac.Ownership{ReporterID: existing.AuthorID}
	if err := s.authz.AuthorizeOwned(ctx, actorID, projectID, rbac.ActionDeleteAnyComment, rbac.ActionEditOwnComment, owners); err != nil {
		return err
	}
	return s.repo.DeleteComment(ctx, commentID)
}

func (s *Service) notify(ctx context.Context, userID int64, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, message); err != nil {
		s.logError("deliver notification", err)
	}
}

func (s *Service) record(ctx context.Context, userID, projectID, itemID int64, action string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, userID, projectID, itemID, action); err != nil {
		s.logError("record activity", err)
	}
}

func (s *Service) logError(msg string, err error) {
	if s.logger != nil {
		s.logger.Error(msg, slog.Any("error", err))
	}
}

func reassigned(before, after *int64) bool {
	if after == nil {
		return false
	}
	return before == nil || *before != *after
}

// newItemKey mints a short, unique, human-pasteable item key.
func newItemKey() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ITM-" + strings.ToUpper(raw[:8])
}
