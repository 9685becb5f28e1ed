package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/apslhvsl/jira-clone/internal/auth"
	"github.com/apslhvsl/jira-clone/internal/platform/httpx"
)

// ItemResolver resolves the owning project and owner identifiers of a work
// item, letting guards on item routes derive the project context from the
// item id alone.
type ItemResolver interface {
	ItemAccess(ctx context.Context, itemID int64) (projectID int64, owners Ownership, err error)
}

// DenialCounter tallies denials for the metrics surface.
type DenialCounter interface {
	CountDenial(reason string)
}

// Guard wires the authorization engine into HTTP routes. Every guarded route
// names its required action up front; handlers behind a guard never re-check
// permissions.
type Guard struct {
	Engine  *Engine
	Items   ItemResolver
	Logger  *slog.Logger
	Denials DenialCounter
}

// Require ensures the caller holds the action within the route's project.
func (g Guard) Require(action string) func(http.Handler) http.Handler {
	return g.middleware(action, "")
}

// RequireOwned ensures the caller holds the action, or holds ownAction and
// owns the target item (is its reporter or assignee).
func (g Guard) RequireOwned(action, ownAction string) func(http.Handler) http.Handler {
	return g.middleware(action, ownAction)
}

func (g Guard) middleware(action, ownAction string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}

			projectID := paramInt64(r, "projectID")
			var owners Ownership
			if projectID == 0 {
				itemID := paramInt64(r, "itemID")
				if itemID == 0 {
					httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "project id not found in request")
					return
				}
				var err error
				projectID, owners, err = g.Items.ItemAccess(r.Context(), itemID)
				if err != nil {
					if errors.Is(err, ErrNotFound) {
						httpx.RespondError(w, httpx.ErrNotFound)
						return
					}
					g.logError("resolve item project", err)
					httpx.RespondError(w, err)
					return
				}
			}

			var err error
			if ownAction == "" {
				err = g.Engine.Authorize(r.Context(), identity.UserID, projectID, action)
			} else {
				err = g.Engine.AuthorizeOwned(r.Context(), identity.UserID, projectID, action, ownAction, owners)
			}
			if err != nil {
				if IsDenied(err) {
					g.countDenial(err)
					httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
					return
				}
				g.logError("authorize", err)
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g Guard) countDenial(err error) {
	if g.Denials == nil {
		return
	}
	switch {
	case errors.Is(err, ErrNotMember):
		g.Denials.CountDenial("not_member")
	case errors.Is(err, ErrNotOwner):
		g.Denials.CountDenial("not_owner")
	default:
		g.Denials.CountDenial("missing_permission")
	}
}

func (g Guard) logError(msg string, err error) {
	if g.Logger != nil {
		g.Logger.Error(msg, slog.Any("error", err))
	}
}

func paramInt64(r *http.Request, name string) int64 {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
