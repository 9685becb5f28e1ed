package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/apslhvsl/jira-clone/internal/platform/httpx"
)

// Middleware authenticates requests and stores the identity in context.
type Middleware struct {
	Verifier Verifier
	Logger   *slog.Logger
}

// Require rejects requests without a valid bearer credential.
func (m Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		if raw == "" || !strings.HasPrefix(raw, "Bearer ") {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		identity, err := m.Verifier.Verify(r.Context(), strings.TrimPrefix(raw, "Bearer "))
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("reject credential", slog.String("path", r.URL.Path))
			}
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	})
}
