package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-iam/internal/auth"
	"github.com/odyssey-erp/odyssey-iam/internal/observability"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/roles"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
	"github.com/odyssey-erp/odyssey-iam/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Metrics            *observability.Metrics
	Gate               rbac.Gate
	AuthHandler        *auth.Handler
	PermissionsHandler *rbac.PermissionsHandler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

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

	authLimit := 10
	if params.Config != nil && params.Config.AuthRateLimit > 0 {
		authLimit = params.Config.AuthRateLimit
	}

	r.Route("/api", func(api chi.Router) {
		if params.AuthHandler != nil {
			api.Route("/auth", func(ar chi.Router) {
				ar.Use(RateLimit(authLimit))
				params.AuthHandler.MountRoutes(ar)
			})
		}
		api.Group(func(guarded chi.Router) {
			guarded.Use(params.Gate.Middleware)
			if params.PermissionsHandler != nil {
				guarded.Route("/permissions", params.PermissionsHandler.MountRoutes)
			}
			if params.RolesHandler != nil {
				guarded.Route("/roles", params.RolesHandler.MountRoutes)
			}
			if params.UsersHandler != nil {
				guarded.Route("/users", params.UsersHandler.MountRoutes)
			}
		})
	})

	return r
}
