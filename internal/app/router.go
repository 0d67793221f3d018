package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atelier-markets/atelier/internal/audit"
	"github.com/atelier-markets/atelier/internal/auth"
	"github.com/atelier-markets/atelier/internal/authz"
	"github.com/atelier-markets/atelier/internal/catalog"
	"github.com/atelier-markets/atelier/internal/grants"
	"github.com/atelier-markets/atelier/internal/identity"
	"github.com/atelier-markets/atelier/internal/observability"
	"github.com/atelier-markets/atelier/internal/orders"
	"github.com/atelier-markets/atelier/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Resolver        *identity.Resolver
	Classifier      *identity.Classifier
	AuthHandler     *auth.Handler
	CatalogHandler  *catalog.Handler
	OrdersHandler   *orders.Handler
	GrantsHandler   *grants.Handler
	AuditHandler    *audit.Handler
	JobHandler      *jobs.Handler
	AuthzMiddleware authz.Middleware
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with Atelier defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:     params.Logger,
		Config:     params.Config,
		Resolver:   params.Resolver,
		Classifier: params.Classifier,
		Metrics:    params.Metrics,
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

	params.AuthHandler.MountRoutes(r)
	params.CatalogHandler.MountRoutes(r)
	params.OrdersHandler.MountRoutes(r)

	// The grant API is an administrative surface; resource-level checks do
	// not apply because admins bypass them anyway.
	r.Route("/admin", func(r chi.Router) {
		r.Use(params.AuthzMiddleware.RequireRole(identity.RoleAdmin))
		params.GrantsHandler.MountRoutes(r)
		params.AuditHandler.MountRoutes(r)
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
