package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/apslhvsl/jira-clone/internal/auth"
)

type stubItemResolver struct {
	projects map[int64]int64
	owners   map[int64]Ownership
}

func (s stubItemResolver) ItemAccess(_ context.Context, itemID int64) (int64, Ownership, error) {
	projectID, ok := s.projects[itemID]
	if !ok {
		return 0, Ownership{}, ErrNotFound
	}
	return projectID, s.owners[itemID], nil
}

func newTestRouter(guard Guard) chi.Router {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r := chi.NewRouter()
	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.With(guard.Require(ActionManageProject)).Post("/settings", ok)
		r.With(guard.Require(ActionViewTasks)).Get("/items", ok)
	})
	r.Route("/items/{itemID}", func(r chi.Router) {
		r.With(guard.RequireOwned(ActionEditAnyTask, ActionEditOwnTask)).Patch("/", ok)
	})
	return r
}

func doRequest(t *testing.T, router chi.Router, method, target string, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if userID != 0 {
		req = req.WithContext(auth.ContextWithIdentity(req.Context(), auth.Identity{UserID: userID}))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestGuardRequire(t *testing.T) {
	engine := NewEngine(newSeededSource(7))
	resolver := stubItemResolver{
		projects: map[int64]int64{42: 7},
		owners:   map[int64]Ownership{42: {ReporterID: 3}},
	}
	router := newTestRouter(Guard{Engine: engine, Items: resolver})

	t.Run("missing identity", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/projects/7/items", 0)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("member allowed", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/projects/7/items", 3)
		require.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("non-member forbidden", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/projects/7/items", 99)
		require.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("member lacking permission forbidden", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPost, "/projects/7/settings", 3)
		require.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("manager allowed", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPost, "/projects/7/settings", 2)
		require.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestGuardDerivesProjectFromItem(t *testing.T) {
	engine := NewEngine(newSeededSource(7))
	resolver := stubItemResolver{
		projects: map[int64]int64{42: 7},
		owners:   map[int64]Ownership{42: {ReporterID: 3}},
	}
	router := newTestRouter(Guard{Engine: engine, Items: resolver})

	t.Run("owner edits via own fallback", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPatch, "/items/42/", 3)
		require.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("non-owner member forbidden", func(t *testing.T) {
		// User 2 is a manager and holds edit_any_task; user 4 is a visitor.
		rr := doRequest(t, router, http.MethodPatch, "/items/42/", 4)
		require.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("manager edits any item", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPatch, "/items/42/", 2)
		require.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("unknown item", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPatch, "/items/404/", 3)
		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}
