package boards

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/apslhvsl/jira-clone/internal/platform/httpx"
	"github.com/apslhvsl/jira-clone/internal/rbac"
)

// ServicePort describes the column operations used by the handler.
type ServicePort interface {
	List(ctx context.Context, projectID int64) ([]Column, error)
	Create(ctx context.Context, projectID int64, name string) (Column, error)
	Rename(ctx context.Context, projectID, columnID int64, name string) (Column, error)
	Delete(ctx context.Context, projectID, columnID int64) error
}

// Handler exposes the board column HTTP surface.
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
	r.With(h.guard.Require(rbac.ActionViewTasks)).Get("/columns", h.handleList)
	r.With(h.guard.Require(rbac.ActionManageProject)).Post("/columns", h.handleCreate)
	r.With(h.guard.Require(rbac.ActionManageProject)).Patch("/columns/{columnID}", h.handleRename)
	r.With(h.guard.Require(rbac.ActionManageProject)).Delete("/columns/{columnID}", h.handleDelete)
}

type columnResponse struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(c Column) columnResponse {
	return columnResponse{ID: c.ID, ProjectID: c.ProjectID, Name: c.Name, Position: c.Position, CreatedAt: c.CreatedAt}
}

type columnRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	columns, err := h.service.List(r.Context(), urlID(r, "projectID"))
	if err != nil {
		h.respondError(w, "list columns", err)
		return
	}
	out := make([]columnResponse, 0, len(columns))
	for _, c := range columns {
		out = append(out, toResponse(c))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"columns": out})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req columnRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	column, err := h.service.Create(r.Context(), urlID(r, "projectID"), req.Name)
	if err != nil {
		h.respondError(w, "create column", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"column": toResponse(column)})
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	var req columnRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	column, err := h.service.Rename(r.Context(), urlID(r, "projectID"), urlID(r, "columnID"), req.Name)
	if err != nil {
		h.respondError(w, "rename column", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"column": toResponse(column)})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), urlID(r, "projectID"), urlID(r, "columnID")); err != nil {
		h.respondError(w, "delete column", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Column deleted"})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "column not found")
	case errors.Is(err, ErrInvalidName):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		if h.logger != nil {
			h.logger.Error(op, slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}

func urlID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id
}
