package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/atelier-markets/atelier/internal/identity"
)

// Middleware wires authorization guards for HTTP handlers.
type Middleware struct {
	PEP    *PEP
	Logger *slog.Logger
}

// Require enforces the given level on the resource identified by the URL
// parameter. An unparseable ID is indistinguishable from a missing resource
// to the caller.
func (m Middleware) Require(kind ResourceKind, required Level, urlParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(chi.URLParam(r, urlParam))
			if err != nil {
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			p := identity.PrincipalFromContext(r.Context())
			if err := m.PEP.Enforce(r.Context(), p, ResourceRef{Kind: kind, ID: id}, required); err != nil {
				if m.Logger != nil {
					m.Logger.Info("request denied",
						slog.String("path", r.URL.Path),
						slog.String("resource_kind", string(kind)),
						slog.String("resource_id", id.String()),
					)
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole gates a route on the principal's role, used for
// administrative surfaces that are not tied to a single resource.
func (m Middleware) RequireRole(role identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := identity.PrincipalFromContext(r.Context())
			if p.Role != role && !p.IsAdmin() {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
