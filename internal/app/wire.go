package app

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-iam/internal/auth"
	"github.com/odyssey-erp/odyssey-iam/internal/observability"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/roles"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
	"github.com/odyssey-erp/odyssey-iam/jobs"
)

// APIDeps are the runtime collaborators of the HTTP API.
type APIDeps struct {
	Logger      *slog.Logger
	Config      *Config
	Store       rbac.Store
	Metrics     *observability.Metrics
	Revocations auth.Revocations
	Pruner      rbac.PruneScheduler
	JobHandler  *jobs.Handler
}

// API is the assembled service graph.
type API struct {
	Catalog *rbac.Service
	Auth    *auth.Service
	Hasher  auth.BcryptHasher
	Gate    rbac.Gate

	PermissionsHandler *rbac.PermissionsHandler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler

	Router http.Handler
}

// NewAPI wires services, the authorization gate and handlers on top of deps.Store.
func NewAPI(deps APIDeps) (*API, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tokens, err := auth.NewTokenCodec(deps.Config.TokenConfig())
	if err != nil {
		return nil, err
	}
	hasher := auth.NewBcryptHasher(deps.Config.BcryptCost)

	catalog := rbac.NewService(deps.Store, logger)
	if deps.Pruner != nil {
		catalog.SetPruneScheduler(deps.Pruner)
	}
	authService := auth.NewService(deps.Store, hasher, tokens, deps.Revocations, logger)

	gate := rbac.Gate{
		Tokens:   authService,
		Users:    deps.Store,
		Resolver: catalog.Resolver(),
		Logger:   logger,
	}
	if deps.Metrics != nil {
		gate.Metrics = deps.Metrics
	}

	api := &API{
		Catalog:            catalog,
		Auth:               authService,
		Hasher:             hasher,
		Gate:               gate,
		PermissionsHandler: rbac.NewPermissionsHandler(logger, catalog, gate),
		RolesHandler:       roles.NewHandler(logger, roles.NewService(deps.Store, catalog), gate),
		UsersHandler:       users.NewHandler(logger, users.NewService(deps.Store, deps.Store, catalog, hasher), gate),
	}
	api.Router = NewRouter(RouterParams{
		Logger:             logger,
		Config:             deps.Config,
		Metrics:            deps.Metrics,
		Gate:               gate,
		AuthHandler:        auth.NewHandler(logger, authService, gate),
		PermissionsHandler: api.PermissionsHandler,
		RolesHandler:       api.RolesHandler,
		UsersHandler:       api.UsersHandler,
		JobHandler:         deps.JobHandler,
	})
	return api, nil
}

// Routes returns every guarded API route.
func (a *API) Routes() []rbac.Route {
	var out []rbac.Route
	out = append(out, a.PermissionsHandler.Routes()...)
	out = append(out, a.RolesHandler.Routes()...)
	out = append(out, a.UsersHandler.Routes()...)
	return out
}
