package items

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/apslhvsl/jira-clone/internal/auth"
	"github.com/apslhvsl/jira-clone/internal/platform/httpx"
	"github.com/apslhvsl/jira-clone/internal/rbac"
)

// ServicePort describes the item operations used by the handler.
type ServicePort interface {
	Create(ctx context.Context, reporterID, projectID int64, in CreateInput) (Item, error)
	Get(ctx context.Context, id int64) (Item, error)
	List(ctx context.Context, projectID int64, filter ListFilter) ([]Item, error)
	Update(ctx context.Context, actorID, itemID int64, upd ItemUpdate) (Item, error)
	Delete(ctx context.Context, actorID, itemID int64) error
	CreateSubtask(ctx context.Context, reporterID, parentID int64, in CreateInput) (Item, error)
	ListSubtasks(ctx context.Context, parentID int64) ([]Item, error)
	AddComment(ctx context.Context, authorID, itemID int64, body string) (Comment, error)
	ListComments(ctx context.Context, itemID int64) ([]Comment, error)
	EditComment(ctx context.Context, actorID, commentID int64, body string) (Comment, error)
	DeleteComment(ctx context.Context, actorID, commentID int64) error
}

// Handler exposes the item and comment HTTP surface.
type Handler struct {
	logger  *slog.Logger
	service ServicePort
	guard   rbac.Guard
}

// NewHandler constructs a handler.
func NewHandler(logger *slog.Logger, service ServicePort, guard rbac.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountProjectRoutes registers routes relative to /projects/{projectID}.
func (h *Handler) MountProjectRoutes(r chi.Router) {
	r.With(h.guard.Require(rbac.ActionCreateTask)).Post("/items", h.handleCreate)
	r.With(h.guard.Require(rbac.ActionViewTasks)).Get("/items", h.handleList)
}

// MountItemRoutes registers routes relative to /items/{itemID}. The guard
// derives the project from the item id.
func (h *Handler) MountItemRoutes(r chi.Router) {
	r.With(h.guard.Require(rbac.ActionViewTasks)).Get("/", h.handleGet)
	r.With(h.guard.RequireOwned(rbac.ActionEditAnyTask, rbac.ActionEditOwnTask)).Patch("/", h.handleUpdate)
	r.With(h.guard.RequireOwned(rbac.ActionDeleteAnyTask, rbac.ActionDeleteOwnTask)).Delete("/", h.handleDelete)
	r.With(h.guard.Require(rbac.ActionViewTasks)).Get("/subtasks", h.handleListSubtasks)
	r.With(h.guard.Require(rbac.ActionCreateTask)).Post("/subtasks", h.handleCreateSubtask)
	r.With(h.guard.Require(rbac.ActionAddComment)).Post("/comments", h.handleAddComment)
	r.With(h.guard.Require(rbac.ActionViewTasks)).Get("/comments", h.handleListComments)
}

// MountCommentRoutes registers routes relative to /comments/{commentID}.
// Ownership here follows the comment's author, so the service authorizes.
func (h *Handler) MountCommentRoutes(r chi.Router) {
	r.Patch("/", h.handleEditComment)
	r.Delete("/", h.handleDeleteComment)
}

type itemResponse struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project_id"`
	Key         string     `json:"key"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Severity    string     `json:"severity,omitempty"`
	ColumnID    *int64     `json:"column_id"`
	ReporterID  int64      `json:"reporter_id"`
	AssigneeID  *int64     `json:"assignee_id"`
	ParentID    *int64     `json:"parent_id"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toItemResponse(it Item) itemResponse {
	return itemResponse{
		ID: it.ID, ProjectID: it.ProjectID, Key: it.Key, Title: it.Title,
		Description: it.Description, Type: it.Type, Status: it.Status,
		Priority: it.Priority, Severity: it.Severity, ColumnID: it.ColumnID,
		ReporterID: it.ReporterID, AssigneeID: it.AssigneeID, ParentID: it.ParentID,
		DueDate: it.DueDate, CreatedAt: it.CreatedAt, UpdatedAt: it.UpdatedAt,
	}
}

type commentResponse struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	AuthorID  int64     `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCommentResponse(c Comment) commentResponse {
	return commentResponse{
		ID: c.ID, ItemID: c.ItemID, AuthorID: c.AuthorID, Body: c.Body,
		CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

type createItemRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Severity    string     `json:"severity"`
	ColumnID    *int64     `json:"column_id"`
	AssigneeID  *int64     `json:"assignee_id"`
	ParentID    *int64     `json:"parent_id"`
	DueDate     *time.Time `json:"due_date"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	var req createItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	item, err := h.service.Create(r.Context(), identity.UserID, urlID(r, "projectID"), CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Status:      req.Status,
		Priority:    req.Priority,
		Severity:    req.Severity,
		ColumnID:    req.ColumnID,
		AssigneeID:  req.AssigneeID,
		ParentID:    req.ParentID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.respondItemError(w, "create item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"item": toItemResponse(item)})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Type:   r.URL.Query().Get("type"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	list, err := h.service.List(r.Context(), urlID(r, "projectID"), filter)
	if err != nil {
		h.respondItemError(w, "list items", err)
		return
	}
	out := make([]itemResponse, 0, len(list))
	for _, it := range list {
		out = append(out, toItemResponse(it))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), urlID(r, "itemID"))
	if err != nil {
		h.respondItemError(w, "get item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item": toItemResponse(item)})
}

type updateItemRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Type        *string    `json:"type"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	Severity    *string    `json:"severity"`
	ColumnID    *int64     `json:"column_id"`
	AssigneeID  *int64     `json:"assignee_id"`
	ParentID    *int64     `json:"parent_id"`
	DueDate     *time.Time `json:"due_date"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	var req updateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	item, err := h.service.Update(r.Context(), identity.UserID, urlID(r, "itemID"), ItemUpdate{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Status:      req.Status,
		Priority:    req.Priority,
		Severity:    req.Severity,
		ColumnID:    req.ColumnID,
		AssigneeID:  req.AssigneeID,
		ParentID:    req.ParentID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.respondItemError(w, "update item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item": toItemResponse(item)})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	if err := h.service.Delete(r.Context(), identity.UserID, urlID(r, "itemID")); err != nil {
		h.respondItemError(w, "delete item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Item deleted"})
}

func (h *Handler) handleListSubtasks(w http.ResponseWriter, r *http.Request) {
	subtasks, err := h.service.ListSubtasks(r.Context(), urlID(r, "itemID"))
	if err != nil {
		h.respondItemError(w, "list subtasks", err)
		return
	}
	out := make([]itemResponse, 0, len(subtasks))
	for _, it := range subtasks {
		out = append(out, toItemResponse(it))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"subtasks": out})
}

func (h *Handler) handleCreateSubtask(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	var req createItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	item, err := h.service.CreateSubtask(r.Context(), identity.UserID, urlID(r, "itemID"), CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Status:      req.Status,
		Priority:    req.Priority,
		Severity:    req.Severity,
		ColumnID:    req.ColumnID,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.respondItemError(w, "create subtask", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"item": toItemResponse(item)})
}

type commentRequest struct {
	Body string `json:"body"`
}

func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	var req commentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	comment, err := h.service.AddComment(r.Context(), identity.UserID, urlID(r, "itemID"), req.Body)
	if err != nil {
		h.respondItemError(w, "add comment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"comment": toCommentResponse(comment)})
}

func (h *Handler) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListComments(r.Context(), urlID(r, "itemID"))
	if err != nil {
		h.respondItemError(w, "list comments", err)
		return
	}
	out := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, toCommentResponse(c))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"comments": out})
}

func (h *Handler) handleEditComment(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req commentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	comment, err := h.service.EditComment(r.Context(), identity.UserID, urlID(r, "commentID"), req.Body)
	if err != nil {
		h.respondItemError(w, "edit comment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"comment": toCommentResponse(comment)})
}

func (h *Handler) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if err := h.service.DeleteComment(r.Context(), identity.UserID, urlID(r, "commentID")); err != nil {
		h.respondItemError(w, "delete comment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Comment deleted"})
}

func (h *Handler) respondItemError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "item not found")
	case errors.Is(err, ErrCommentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "comment not found")
	case errors.Is(err, ErrInvalidTitle), errors.Is(err, ErrInvalidType),
		errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidPriority),
		errors.Is(err, ErrEmptyComment):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case rbac.IsDenied(err):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		h.logError(op, err)
		httpx.RespondError(w, err)
	}
}

func (h *Handler) logError(msg string, err error) {
	if h.logger != nil {
		h.logger.Error(msg, slog.Any("error", err))
	}
}

func urlID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id
}

func queryInt(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}
