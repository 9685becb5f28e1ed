package projects

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/apslhvsl/jira-clone/internal/auth"
	"github.com/apslhvsl/jira-clone/internal/platform/httpx"
	"github.com/apslhvsl/jira-clone/internal/rbac"
)

// ServicePort describes the project operations used by the handler.
type ServicePort interface {
	Create(ctx context.Context, creatorID int64, name, description string) (Project, error)
	Get(ctx context.Context, id int64) (Project, error)
	ListMine(ctx context.Context, userID int64) ([]Project, error)
	Update(ctx context.Context, id int64, name, description *string) (Project, error)
	Delete(ctx context.Context, id int64) error
	TransferAdmin(ctx context.Context, id, newAdminID int64) error
	Progress(ctx context.Context, projectID int64) (Progress, error)
	DashboardStats(ctx context.Context, userID int64) (DashboardStats, error)
}

// Handler exposes the project HTTP surface.
type Handler struct {
	logger   *slog.Logger
	service  ServicePort
	guard    rbac.Guard
	validate *validator.Validate
}

// NewHandler constructs a handler.
func NewHandler(logger *slog.Logger, service ServicePort, guard rbac.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validate: validator.New()}
}

// MountRootRoutes registers routes relative to /projects.
func (h *Handler) MountRootRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleListMine)
}

// MountProjectRoutes registers routes relative to /projects/{projectID}.
func (h *Handler) MountProjectRoutes(r chi.Router) {
	r.With(h.guard.Require(rbac.ActionViewProjectSettings)).Get("/", h.handleGet)
	r.With(h.guard.Require(rbac.ActionManageProject)).Patch("/", h.handleUpdate)
	r.With(h.guard.Require(rbac.ActionDeleteProject)).Delete("/", h.handleDelete)
	r.With(h.guard.Require(rbac.ActionTransferAdmin)).Post("/transfer-admin", h.handleTransferAdmin)
	r.With(h.guard.Require(rbac.ActionViewTasks)).Get("/progress", h.handleProgress)
}

// MountUserRoutes registers caller-scoped routes outside /projects.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Get("/dashboard-stats", h.handleDashboardStats)
}

type projectResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AdminID     int64     `json:"admin_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toResponse(p Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		AdminID:     p.AdminID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type createRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "project name is required")
		return
	}
	project, err := h.service.Create(r.Context(), identity.UserID, req.Name, req.Description)
	if err != nil {
		h.logError("create project", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"project": toResponse(project)})
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	projects, err := h.service.ListMine(r.Context(), identity.UserID)
	if err != nil {
		h.logError("list projects", err)
		httpx.RespondError(w, err)
		return
	}
	out := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, toResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"projects": out})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Get(r.Context(), urlID(r, "projectID"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "project not found")
			return
		}
		h.logError("get project", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"project": toResponse(project)})
}

type updateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if req.Name != nil && (*req.Name == "" || len(*req.Name) > 120) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "project name must be 1-120 characters")
		return
	}
	project, err := h.service.Update(r.Context(), urlID(r, "projectID"), req.Name, req.Description)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "project not found")
			return
		}
		h.logError("update project", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"project": toResponse(project)})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), urlID(r, "projectID")); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "project not found")
			return
		}
		h.logError("delete project", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Project deleted"})
}

type transferAdminRequest struct {
	NewAdminID int64 `json:"new_admin_id" validate:"required"`
}

func (h *Handler) handleTransferAdmin(w http.ResponseWriter, r *http.Request) {
	var req transferAdminRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "new admin id required")
		return
	}
	err := h.service.TransferAdmin(r.Context(), urlID(r, "projectID"), req.NewAdminID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "new admin not found")
		case errors.Is(err, ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "project not found")
		default:
			h.logError("transfer admin", err)
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Adminship transferred"})
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.service.Progress(r.Context(), urlID(r, "projectID"))
	if err != nil {
		h.logError("project progress", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{
		"total":       progress.Total,
		"completed":   progress.Completed,
		"in_progress": progress.InProgress,
		"todo":        progress.Todo,
	})
}

func (h *Handler) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	stats, err := h.service.DashboardStats(r.Context(), identity.UserID)
	if err != nil {
		h.logError("dashboard stats", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{
		"projectCount": stats.ProjectCount,
		"taskCount":    stats.TaskCount,
	})
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
