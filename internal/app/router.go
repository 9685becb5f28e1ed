package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/apslhvsl/jira-clone/internal/activity"
	"github.com/apslhvsl/jira-clone/internal/auth"
	"github.com/apslhvsl/jira-clone/internal/boards"
	"github.com/apslhvsl/jira-clone/internal/items"
	"github.com/apslhvsl/jira-clone/internal/members"
	"github.com/apslhvsl/jira-clone/internal/notify"
	"github.com/apslhvsl/jira-clone/internal/observability"
	"github.com/apslhvsl/jira-clone/internal/projects"
	"github.com/apslhvsl/jira-clone/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthMiddleware  auth.Middleware
	ProjectsHandler *projects.Handler
	MembersHandler  *members.Handler
	ItemsHandler    *items.Handler
	BoardsHandler   *boards.Handler
	ActivityHandler *activity.Handler
	NotifyHandler   *notify.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.Require)

		r.Route("/projects", func(r chi.Router) {
			params.ProjectsHandler.MountRootRoutes(r)
			r.Route("/{projectID}", func(r chi.Router) {
				params.ProjectsHandler.MountProjectRoutes(r)
				params.MembersHandler.MountProjectRoutes(r)
				params.ItemsHandler.MountProjectRoutes(r)
				params.BoardsHandler.MountProjectRoutes(r)
			})
		})

		r.Route("/items/{itemID}", params.ItemsHandler.MountItemRoutes)
		r.Route("/comments/{commentID}", params.ItemsHandler.MountCommentRoutes)
		r.Route("/notifications", params.NotifyHandler.MountUserRoutes)

		params.ProjectsHandler.MountUserRoutes(r)
		params.MembersHandler.MountUserRoutes(r)
		params.ActivityHandler.MountUserRoutes(r)
	})

	return r
}
