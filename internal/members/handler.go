package members

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/apslhvsl/jira-clone/internal/auth"
	"github.com/apslhvsl/jira-clone/internal/platform/httpx"
	"github.com/apslhvsl/jira-clone/internal/rbac"
)

// ServicePort describes the membership operations used by the handler.
type ServicePort interface {
	Invite(ctx context.Context, projectID int64, email, roleName string) error
	RequestToJoin(ctx context.Context, projectID, userID int64) error
	AcceptJoinRequest(ctx context.Context, projectID, requestID int64) error
	RejectJoinRequest(ctx context.Context, projectID, requestID int64) error
	AcceptInvitation(ctx context.Context, projectID, inviteID, userID int64) error
	RejectInvitation(ctx context.Context, projectID, inviteID, userID int64) error
	RemoveMember(ctx context.Context, projectID, userID int64) error
	ChangeRole(ctx context.Context, projectID, userID int64, roleName string) error
	ListMembers(ctx context.Context, projectID int64) ([]Member, error)
	ListJoinRequests(ctx context.Context, projectID int64) ([]RequestDetail, error)
	ListMyInvitations(ctx context.Context, userID int64) ([]MembershipRequest, error)
}

// Handler exposes the membership HTTP surface.
type Handler struct {
	logger   *slog.Logger
	service  ServicePort
	guard    rbac.Guard
	validate *validator.Validate
	titler   cases.Caser
}

// NewHandler constructs a handler.
func NewHandler(logger *slog.Logger, service ServicePort, guard rbac.Guard) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		guard:    guard,
		validate: validator.New(),
		titler:   cases.Title(language.English),
	}
}

// MountProjectRoutes registers routes relative to /projects/{projectID}.
func (h *Handler) MountProjectRoutes(r chi.Router) {
	r.With(h.guard.Require(rbac.ActionAddRemoveMembers)).Post("/members", h.handleInvite)
	r.With(h.guard.Require(rbac.ActionViewProjectSettings)).Get("/members", h.handleListMembers)
	r.With(h.guard.Require(rbac.ActionAddRemoveMembers)).Delete("/members/{userID}", h.handleRemoveMember)
	r.With(h.guard.Require(rbac.ActionAddRemoveMembers)).Patch("/members/{userID}", h.handleChangeRole)

	r.Post("/join-request", h.handleRequestToJoin)
	r.With(h.guard.Require(rbac.ActionAddRemoveMembers)).Get("/join-requests", h.handleListJoinRequests)
	r.With(h.guard.Require(rbac.ActionAddRemoveMembers)).Post("/join-requests/{requestID}/accept", h.handleAcceptJoinRequest)
	r.With(h.guard.Require(rbac.ActionAddRemoveMembers)).Post("/join-requests/{requestID}/reject", h.handleRejectJoinRequest)

	r.Post("/invitation/{inviteID}/accept", h.handleAcceptInvitation)
	r.Post("/invitation/{inviteID}/reject", h.handleRejectInvitation)
}

// MountUserRoutes registers the invitee-side routes outside /projects.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Get("/my-invitations", h.handleMyInvitations)
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role"`
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user email required")
		return
	}
	err := h.service.Invite(r.Context(), urlID(r, "projectID"), req.Email, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrRoleNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		case errors.Is(err, ErrAlreadyMember), errors.Is(err, ErrRequestPending):
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		default:
			h.logError("invite member", err)
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Invitation sent"})
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context(), urlID(r, "projectID"))
	if err != nil {
		h.logError("list members", err)
		httpx.RespondError(w, err)
		return
	}
	type memberResponse struct {
		UserID      int64  `json:"user_id"`
		Username    string `json:"username"`
		Email       string `json:"email"`
		Role        string `json:"role"`
		RoleDisplay string `json:"role_display"`
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{
			UserID:      m.UserID,
			Username:    m.Username,
			Email:       m.Email,
			Role:        m.RoleName,
			RoleDisplay: h.titler.String(m.RoleName),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"members": out})
}

func (h *Handler) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveMember(r.Context(), urlID(r, "projectID"), urlID(r, "userID"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "member not found")
			return
		}
		h.logError("remove member", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Member removed"})
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role name required")
		return
	}
	err := h.service.ChangeRole(r.Context(), urlID(r, "projectID"), urlID(r, "userID"), req.Role)
	if err != nil {
		switch {
		case errors.Is(err, ErrRoleNotFound):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "member not found")
		default:
			h.logError("change role", err)
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Role updated"})
}

func (h *Handler) handleRequestToJoin(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	err := h.service.RequestToJoin(r.Context(), urlID(r, "projectID"), identity.UserID)
	if err != nil {
		if errors.Is(err, ErrAlreadyMember) || errors.Is(err, ErrRequestPending) {
			// Self-service joins surface duplicates as a plain bad request.
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logError("request to join", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Join request submitted"})
}

func (h *Handler) handleListJoinRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListJoinRequests(r.Context(), urlID(r, "projectID"))
	if err != nil {
		h.logError("list join requests", err)
		httpx.RespondError(w, err)
		return
	}
	type requestResponse struct {
		ID        int64     `json:"id"`
		UserID    int64     `json:"user_id"`
		Username  string    `json:"username"`
		Email     string    `json:"email"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]requestResponse, 0, len(requests))
	for _, q := range requests {
		out = append(out, requestResponse{
			ID:        q.ID,
			UserID:    q.UserID,
			Username:  q.Username,
			Email:     q.Email,
			Status:    string(q.Status),
			CreatedAt: q.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": out})
}

func (h *Handler) handleAcceptJoinRequest(w http.ResponseWriter, r *http.Request) {
	h.resolveJoinRequest(w, r, h.service.AcceptJoinRequest, "Request accepted, user added")
}

func (h *Handler) handleRejectJoinRequest(w http.ResponseWriter, r *http.Request) {
	h.resolveJoinRequest(w, r, h.service.RejectJoinRequest, "Request rejected")
}

func (h *Handler) resolveJoinRequest(w http.ResponseWriter, r *http.Request, resolve func(context.Context, int64, int64) error, message string) {
	err := resolve(r.Context(), urlID(r, "projectID"), urlID(r, "requestID"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "request not found")
		case errors.Is(err, ErrRoleNotFound):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, ErrAlreadyMember):
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		default:
			h.logError("resolve join request", err)
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *Handler) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	h.resolveInvitation(w, r, h.service.AcceptInvitation, "Invitation accepted, user added")
}

func (h *Handler) handleRejectInvitation(w http.ResponseWriter, r *http.Request) {
	h.resolveInvitation(w, r, h.service.RejectInvitation, "Invitation rejected")
}

func (h *Handler) resolveInvitation(w http.ResponseWriter, r *http.Request, resolve func(context.Context, int64, int64, int64) error, message string) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	err := resolve(r.Context(), urlID(r, "projectID"), urlID(r, "inviteID"), identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "invitation not found")
		case errors.Is(err, ErrRoleNotFound):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, ErrAlreadyMember):
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		default:
			h.logError("resolve invitation", err)
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *Handler) handleMyInvitations(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	invites, err := h.service.ListMyInvitations(r.Context(), identity.UserID)
	if err != nil {
		h.logError("list invitations", err)
		httpx.RespondError(w, err)
		return
	}
	type inviteResponse struct {
		ID        int64     `json:"id"`
		ProjectID int64     `json:"project_id"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]inviteResponse, 0, len(invites))
	for _, inv := range invites {
		out = append(out, inviteResponse{
			ID:        inv.ID,
			ProjectID: inv.ProjectID,
			Status:    string(inv.Status),
			CreatedAt: inv.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invitations": out})
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
