package activity

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/apslhvsl/jira-clone/internal/auth"
	"github.com/apslhvsl/jira-clone/internal/platform/httpx"
)

// Feed describes the read side used by the handler.
type Feed interface {
	RecentForUser(ctx context.Context, userID int64, limit int) ([]Entry, error)
}

// Handler serves the caller's recent-activity feed.
type Handler struct {
	logger *slog.Logger
	feed   Feed
}

// NewHandler constructs a handler.
func NewHandler(logger *slog.Logger, feed Feed) *Handler {
	return &Handler{logger: logger, feed: feed}
}

// MountUserRoutes registers caller-scoped routes.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Get("/recent-activity", h.handleRecent)
}

type entryResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProjectID int64     `json:"project_id"`
	ItemID    int64     `json:"item_id"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.feed.RecentForUser(r.Context(), identity.UserID, limit)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("recent activity", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID: e.ID, UserID: e.UserID, ProjectID: e.ProjectID,
			ItemID: e.ItemID, Action: e.Action, CreatedAt: e.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"activity": out})
}
